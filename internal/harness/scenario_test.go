package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ParsesBuildTriangle(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/build_triangle.yaml")
	require.NoError(t, err)

	assert.Equal(t, "build_triangle", s.Name)
	assert.Equal(t, "g1", s.AggregateID)
	require.Len(t, s.Steps, 7)
	assert.Equal(t, "Create", s.Steps[0].Kind)
	assert.Equal(t, "a", s.Steps[1].Args["node_id"])
}

func TestLoadScenario_MissingAggregateIDErrors(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/missing_aggregate_id.yaml")
	require.Error(t, err)
}

func TestLoadScenario_MissingFileErrors(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
}
