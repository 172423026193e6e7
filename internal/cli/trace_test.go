package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_ShowsTimelineAndProvenance(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	seedGraphStore(t, dbPath)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--aggregate", "g1"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Timeline")
	assert.Contains(t, output, "Provenance")
	assert.Contains(t, output, "graph_created")
	assert.Contains(t, output, "node_added")
}

func TestTrace_JSONOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	seedGraphStore(t, dbPath)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--aggregate", "g1"})

	err := cmd.Execute()
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)

	data, err := json.Marshal(response.Data)
	require.NoError(t, err)
	var result TraceResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "g1", result.AggregateID)
	assert.Len(t, result.Timeline, 2)
}

func TestTrace_UnknownAggregateIsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	seedGraphStore(t, dbPath)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--aggregate", "ghost"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no events")
}

func TestTrace_MissingAggregateFlag(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetArgs([]string{"--db", "x.db"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate")
}

func TestTraceHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "--db")
	assert.Contains(t, output, "--aggregate")
	assert.Contains(t, output, "provenance")
}
