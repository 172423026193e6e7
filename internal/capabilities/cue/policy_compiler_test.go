package cue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCUEPolicyCompiler_CompilesRules(t *testing.T) {
	source := []byte(`
		sync: "rebalance-on-overflow": {
			projection:  "graph-summary"
			when:        "node_added"
			then_domain: "graph"
			then_kind:   "ComposeSubgraph"
			where: {
				graph_id: "g1"
			}
		}
	`)

	rules, err := CUEPolicyCompiler{}.Compile(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	rule := rules[0]
	assert.Equal(t, "rebalance-on-overflow", rule.ID)
	assert.Equal(t, "graph-summary", rule.Projection)
	assert.Equal(t, "node_added", rule.When)
	assert.Equal(t, "graph", rule.ThenDomain)
	assert.Equal(t, "ComposeSubgraph", rule.ThenKind)
	assert.Equal(t, "g1", rule.Where["graph_id"])
}

func TestCUEPolicyCompiler_NoSyncBlockReturnsEmpty(t *testing.T) {
	rules, err := CUEPolicyCompiler{}.Compile(context.Background(), []byte(`foo: "bar"`))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestCUEPolicyCompiler_MissingRequiredFieldErrors(t *testing.T) {
	source := []byte(`
		sync: "broken": {
			projection: "graph-summary"
		}
	`)
	_, err := CUEPolicyCompiler{}.Compile(context.Background(), source)
	require.Error(t, err)
}
