package cue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCUEConfigSource_LoadOverridesDefaults(t *testing.T) {
	src := CUEConfigSource{Source: []byte(`
		snapshot_interval_events: 50
		max_conflict_retries:     3
		bridge_capacity:          1024
		chain_verify_on_startup:  false
		layout: {
			damping: 0.5
		}
	`)}

	cfg, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), cfg.SnapshotIntervalEvents)
	assert.Equal(t, 3, cfg.MaxConflictRetries)
	assert.Equal(t, 1024, cfg.BridgeCapacity)
	assert.False(t, cfg.ChainVerifyOnStartup)
	assert.Equal(t, 0.5, cfg.Layout.Damping)
	// Fields not present in the document keep config.Default()'s value.
	assert.Equal(t, 1.0, cfg.Layout.Repulsion)
}

func TestCUEConfigSource_LoadRejectsInvalidResult(t *testing.T) {
	src := CUEConfigSource{Source: []byte(`
		layout: {
			damping: 1.5
		}
	`)}
	_, err := src.Load(context.Background())
	require.Error(t, err)
}

func TestCUEConfigSource_LoadRejectsMalformedCUE(t *testing.T) {
	src := CUEConfigSource{Source: []byte(`not valid cue {{{`)}
	_, err := src.Load(context.Background())
	require.Error(t, err)
	var srcErr *ConfigSourceError
	require.ErrorAs(t, err, &srcErr)
}
