package harness

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cimalchemist/alchemist/internal/aggregate"
	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/testutil"
)

// TestRun_S7_BuildTriangleGoldenDeterminism pins build_triangle's trace
// shape (step kinds and sequence numbers) across runs. CIDs are
// content-derived and change if GraphCreatedPayload/NodeAddedPayload/etc.
// or canon encoding ever change, so this test is an early warning for
// unintended payload-shape drift, not just a byte-for-byte snapshot of
// one run.
func TestRun_S7_BuildTriangleGoldenDeterminism(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := eventlog.Open(dbPath, nil)
	require.NoError(t, err)
	defer store.Close()

	clock := testutil.NewWallClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rt := aggregate.New(store, aggregate.GraphHandler{}, aggregate.DefaultConfig(), nil).WithClock(clock.Now)

	scenario, err := LoadScenario("testdata/scenarios/build_triangle.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), rt, scenario)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "build_triangle", result))
}
