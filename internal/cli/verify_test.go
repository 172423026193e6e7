package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimalchemist/alchemist/internal/aggregate"
	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/graph"
	"github.com/cimalchemist/alchemist/internal/testutil"
)

func seedGraphStore(t *testing.T, dbPath string) {
	t.Helper()
	store, err := eventlog.Open(dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	clock := testutil.NewWallClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rt := aggregate.New(store, aggregate.GraphHandler{}, aggregate.DefaultConfig(), nil).WithClock(clock.Now)

	_, _, err = rt.Handle(context.Background(), aggregate.Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	_, _, err = rt.Handle(context.Background(), aggregate.Command{
		AggregateID: "g1",
		Kind:        "AddNode",
		Payload:     graph.NodeAddedPayload("a", "A", graph.Position{}, "", nil),
	})
	require.NoError(t, err)
}

func TestVerify_CleanChainPasses(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	seedGraphStore(t, dbPath)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewVerifyCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--stream", "graph"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "verified")
}

func TestVerify_MissingDatabaseFlag(t *testing.T) {
	cmd := NewVerifyCommand(&RootOptions{Format: "text"})
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}
