// Package cue provides thin reference adapters from CUE source to the
// capabilities package's ConfigSource and PolicyCompiler interfaces,
// generalizing the teacher's CUE-to-IR compiler
// (internal/compiler/concept.go, internal/compiler/sync.go) to
// CUE-to-config.Config and CUE-to-[]projection.SyncRule respectively.
package cue

import (
	"context"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/cimalchemist/alchemist/internal/capabilities"
	"github.com/cimalchemist/alchemist/internal/config"
)

// ConfigSourceError reports a field that failed to parse out of a CUE
// config document.
type ConfigSourceError struct {
	Field   string
	Message string
}

func (e *ConfigSourceError) Error() string {
	return fmt.Sprintf("cue config source: %s: %s", e.Field, e.Message)
}

// CUEConfigSource loads a config.Config from a CUE document, e.g.:
//
//	snapshot_interval_events: 200
//	max_conflict_retries:     5
//	bridge_capacity:          4096
//	chain_verify_on_startup:  true
//	layout: {
//		repulsion: 1.0
//		attraction: 0.05
//		rest_length: 1.0
//		damping: 0.85
//		epsilon: 0.0001
//		stable_steps: 5
//		max_steps: 1000
//		min_distance: 0.000001
//	}
//	layout_diameter_size_threshold: 2000
type CUEConfigSource struct {
	Source []byte
}

var _ capabilities.ConfigSource = CUEConfigSource{}

// Load compiles the CUE source and extracts a config.Config, falling
// back to config.Default() for any field the document omits.
func (s CUEConfigSource) Load(ctx context.Context) (config.Config, error) {
	cfg := config.Default()

	ctxCUE := cuecontext.New()
	v := ctxCUE.CompileBytes(s.Source)
	if err := v.Err(); err != nil {
		return config.Config{}, &ConfigSourceError{Field: "<root>", Message: err.Error()}
	}

	if err := lookupInt64(v, "snapshot_interval_events", &cfg.SnapshotIntervalEvents); err != nil {
		return config.Config{}, err
	}
	if err := lookupInt(v, "max_conflict_retries", &cfg.MaxConflictRetries); err != nil {
		return config.Config{}, err
	}
	if err := lookupInt(v, "bridge_capacity", &cfg.BridgeCapacity); err != nil {
		return config.Config{}, err
	}
	if err := lookupBool(v, "chain_verify_on_startup", &cfg.ChainVerifyOnStartup); err != nil {
		return config.Config{}, err
	}
	if err := lookupInt(v, "layout_diameter_size_threshold", &cfg.LayoutDiameterSizeThreshold); err != nil {
		return config.Config{}, err
	}

	layout := v.LookupPath(cue.ParsePath("layout"))
	if layout.Exists() {
		if err := lookupFloat(layout, "repulsion", &cfg.Layout.Repulsion); err != nil {
			return config.Config{}, err
		}
		if err := lookupFloat(layout, "attraction", &cfg.Layout.Attraction); err != nil {
			return config.Config{}, err
		}
		if err := lookupFloat(layout, "rest_length", &cfg.Layout.RestLength); err != nil {
			return config.Config{}, err
		}
		if err := lookupFloat(layout, "damping", &cfg.Layout.Damping); err != nil {
			return config.Config{}, err
		}
		if err := lookupFloat(layout, "epsilon", &cfg.Layout.Epsilon); err != nil {
			return config.Config{}, err
		}
		if err := lookupInt(layout, "stable_steps", &cfg.Layout.StableSteps); err != nil {
			return config.Config{}, err
		}
		if err := lookupInt(layout, "max_steps", &cfg.Layout.MaxSteps); err != nil {
			return config.Config{}, err
		}
		if err := lookupFloat(layout, "min_distance", &cfg.Layout.MinDistance); err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func lookupInt64(v cue.Value, field string, out *int64) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	n, err := fv.Int64()
	if err != nil {
		return &ConfigSourceError{Field: field, Message: err.Error()}
	}
	*out = n
	return nil
}

func lookupInt(v cue.Value, field string, out *int) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	n, err := fv.Int64()
	if err != nil {
		return &ConfigSourceError{Field: field, Message: err.Error()}
	}
	*out = int(n)
	return nil
}

func lookupFloat(v cue.Value, field string, out *float64) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	f, err := fv.Float64()
	if err != nil {
		return &ConfigSourceError{Field: field, Message: err.Error()}
	}
	*out = f
	return nil
}

func lookupBool(v cue.Value, field string, out *bool) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	b, err := fv.Bool()
	if err != nil {
		return &ConfigSourceError{Field: field, Message: err.Error()}
	}
	*out = b
	return nil
}
