package projection

import (
	"encoding/json"
	"fmt"

	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/graph"
)

// GraphSummaryState is a read-optimized fold over every graph aggregate's
// node_added/node_removed/edge_added/edge_removed events: live counts per
// graph, with no replay of full topology required to answer "how big is
// this graph" queries.
type GraphSummaryState struct {
	Graphs map[string]GraphCounts
}

// GraphCounts is one graph's live node/edge tally.
type GraphCounts struct {
	Nodes int
	Edges int
}

// GraphSummary is a concrete Projection[GraphSummaryState], grounded on
// the same event vocabulary internal/graph and internal/aggregate use, to
// demonstrate C5 consuming C4's output through C3 without re-deriving
// full aggregate state.
type GraphSummary struct{}

var _ Projection[GraphSummaryState] = GraphSummary{}

func (GraphSummary) Name() string { return "graph-summary" }

func (GraphSummary) Patterns() []string { return []string{"events.domain.graph.>"} }

func (GraphSummary) Initial() GraphSummaryState {
	return GraphSummaryState{Graphs: map[string]GraphCounts{}}
}

func (GraphSummary) Apply(state GraphSummaryState, ev eventlog.Event) (GraphSummaryState, error) {
	counts := state.Graphs[ev.AggregateID]
	switch lastSegment(ev.Subject) {
	case graph.KindNodeAdded:
		counts.Nodes++
	case graph.KindNodeRemoved:
		if counts.Nodes > 0 {
			counts.Nodes--
		}
	case graph.KindEdgeAdded:
		counts.Edges++
	case graph.KindEdgeRemoved:
		if counts.Edges > 0 {
			counts.Edges--
		}
	case graph.KindGraphCreated:
		state.Graphs[ev.AggregateID] = GraphCounts{}
		return state, nil
	case graph.KindGraphArchived:
		delete(state.Graphs, ev.AggregateID)
		return state, nil
	default:
		return state, nil
	}
	state.Graphs[ev.AggregateID] = counts
	return state, nil
}

func (GraphSummary) EncodeState(state GraphSummaryState) ([]byte, error) {
	return json.Marshal(state)
}

func (GraphSummary) DecodeState(data []byte) (GraphSummaryState, error) {
	var state GraphSummaryState
	if err := json.Unmarshal(data, &state); err != nil {
		return GraphSummaryState{}, fmt.Errorf("projection: decode graph summary: %w", err)
	}
	if state.Graphs == nil {
		state.Graphs = map[string]GraphCounts{}
	}
	return state, nil
}

func lastSegment(subject string) string {
	for i := len(subject) - 1; i >= 0; i-- {
		if subject[i] == '.' {
			return subject[i+1:]
		}
	}
	return subject
}
