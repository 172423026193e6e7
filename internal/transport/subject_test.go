package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSubject(t *testing.T) {
	s, err := EventSubject("graph", "g1", "node_added")
	require.NoError(t, err)
	assert.Equal(t, "events.domain.graph.g1.node_added", s)
}

func TestEventSubjectRejectsInvalidSegments(t *testing.T) {
	_, err := EventSubject("Graph", "g1", "node_added")
	assert.Error(t, err)
}

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern, subject string
		want             bool
	}{
		{"events.domain.graph.g1.node_added", "events.domain.graph.g1.node_added", true},
		{"events.domain.graph.*.node_added", "events.domain.graph.g1.node_added", true},
		{"events.domain.graph.*.node_added", "events.domain.graph.g1.edge_added", false},
		{"events.domain.graph.>", "events.domain.graph.g1.node_added", true},
		{"events.domain.workflow.>", "events.domain.graph.g1.node_added", false},
		{"events.domain.*.*.*", "events.domain.graph.g1.node_added", true},
		{"events.domain.*.*", "events.domain.graph.g1.node_added", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchSubject(tt.pattern, tt.subject), "pattern=%s subject=%s", tt.pattern, tt.subject)
	}
}
