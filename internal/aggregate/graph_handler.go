package aggregate

import (
	"github.com/cimalchemist/alchemist/internal/canon"
	"github.com/cimalchemist/alchemist/internal/graph"
)

// GraphHandler implements Handler[*graph.Graph], the one fully-realized
// command set from spec §4.4's "illustrative" per-family list: Create,
// Archive, AddNode, RemoveNode, AddEdge, RemoveEdge, MoveNode,
// ReplaceNodeContent, ComposeSubgraph. Workflow and Identity follow the
// same Handler shape but are not built here, since the spec itself marks
// their command sets as illustrative rather than normative.
type GraphHandler struct{}

var _ Handler[*graph.Graph] = GraphHandler{}

func (GraphHandler) Domain() string { return "graph" }

func (GraphHandler) Initial() *graph.Graph { return graph.New() }

func (GraphHandler) EncodeState(g *graph.Graph) ([]byte, error) { return g.Snapshot() }

func (GraphHandler) DecodeState(data []byte) (*graph.Graph, error) { return graph.Restore(data) }

func (GraphHandler) Apply(g *graph.Graph, ev EventView) (*graph.Graph, error) {
	if err := g.Apply(graph.EventView{Sequence: ev.Sequence, Kind: ev.Kind, Payload: ev.Payload}); err != nil {
		return g, err
	}
	return g, nil
}

func (h GraphHandler) Validate(g *graph.Graph, cmd Command) ([]EventDraft, error) {
	switch cmd.Kind {
	case "Create":
		if g.ID() != "" {
			return nil, NewDomainError(AlreadyExists, "graph %s already created", cmd.AggregateID)
		}
		return []EventDraft{{
			Kind:          graph.KindGraphCreated,
			CorrelationID: cmd.AggregateID,
			Payload:       graph.GraphCreatedPayload(cmd.AggregateID),
		}}, nil

	case "Archive":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		// A graph exclusively owns its nodes, edges, and subgraphs
		// (spec Lifecycle section): archiving it removes every contained
		// entity in the same batch, edges before the nodes they span so
		// no intermediate state has a dangling endpoint.
		correlation := cmd.AggregateID
		var drafts []EventDraft
		for _, eid := range g.Edges() {
			drafts = append(drafts, EventDraft{
				Kind:          graph.KindEdgeRemoved,
				CorrelationID: correlation,
				Payload:       graph.EdgeRemovedPayload(eid),
			})
		}
		for _, nid := range g.Nodes() {
			drafts = append(drafts, EventDraft{
				Kind:          graph.KindNodeRemoved,
				CorrelationID: correlation,
				Payload:       graph.NodeRemovedPayload(nid),
			})
		}
		for _, sid := range g.Subgraphs() {
			drafts = append(drafts, EventDraft{
				Kind:          graph.KindSubgraphRemoved,
				CorrelationID: correlation,
				Payload:       graph.SubgraphRemovedPayload(sid),
			})
		}
		drafts = append(drafts, EventDraft{
			Kind:          graph.KindGraphArchived,
			CorrelationID: correlation,
			Payload:       graph.GraphArchivedPayload(),
		})
		return drafts, nil

	case "AddNode":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "node_id")
		if err != nil {
			return nil, err
		}
		if _, exists := g.Node(graph.NodeID(id)); exists {
			return nil, NewDomainError(AlreadyExists, "node %s already exists", id)
		}
		label, _ := optionalString(cmd.Payload, "label")
		nodeType, _ := optionalString(cmd.Payload, "type")
		pos := optionalPosition(cmd.Payload, "pos")
		semantic := optionalFloats(cmd.Payload, "semantic")
		return []EventDraft{{
			Kind:          graph.KindNodeAdded,
			CorrelationID: correlationOf(cmd),
			Payload:       graph.NodeAddedPayload(graph.NodeID(id), label, pos, nodeType, semantic),
		}}, nil

	case "RemoveNode":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "node_id")
		if err != nil {
			return nil, err
		}
		if _, exists := g.Node(graph.NodeID(id)); !exists {
			return nil, NewDomainError(NotFound, "node %s not found", id)
		}
		return []EventDraft{{
			Kind:          graph.KindNodeRemoved,
			CorrelationID: correlationOf(cmd),
			Payload:       graph.NodeRemovedPayload(graph.NodeID(id)),
		}}, nil

	case "MoveNode":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "node_id")
		if err != nil {
			return nil, err
		}
		if _, exists := g.Node(graph.NodeID(id)); !exists {
			return nil, NewDomainError(NotFound, "node %s not found", id)
		}
		pos := optionalPosition(cmd.Payload, "pos")
		return []EventDraft{{
			Kind:          graph.KindNodeMoved,
			CorrelationID: correlationOf(cmd),
			Payload:       graph.NodeMovedPayload(graph.NodeID(id), pos),
		}}, nil

	case "ReplaceNodeContent":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "node_id")
		if err != nil {
			return nil, err
		}
		node, exists := g.Node(graph.NodeID(id))
		if !exists {
			return nil, NewDomainError(NotFound, "node %s not found", id)
		}
		label, _ := optionalString(cmd.Payload, "label")
		nodeType, _ := optionalString(cmd.Payload, "type")
		attrs, _ := cmd.Payload["attrs"].(canon.Object)
		correlation := correlationOf(cmd)
		// Value-object change policy (spec §4.4): Removed+Added with a
		// shared correlation id; the enclosing node id stays stable since
		// edges reference it directly, unlike an edge's own value identity.
		return []EventDraft{
			{
				Kind:          graph.KindNodeContentRemoved,
				CorrelationID: correlation,
				Payload:       graph.NodeContentRemovedPayload(graph.NodeID(id), node.ContentSeq),
			},
			{
				Kind:          graph.KindNodeContentAdded,
				CorrelationID: correlation,
				Payload:       graph.NodeContentAddedPayload(graph.NodeID(id), node.ContentSeq+1, label, nodeType, attrs),
			},
		}, nil

	case "AddEdge":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "edge_id")
		if err != nil {
			return nil, err
		}
		source, err := requireString(cmd.Payload, "source")
		if err != nil {
			return nil, err
		}
		target, err := requireString(cmd.Payload, "target")
		if err != nil {
			return nil, err
		}
		if _, exists := g.Edge(graph.EdgeID(id)); exists {
			return nil, NewDomainError(AlreadyExists, "edge %s already exists", id)
		}
		if _, exists := g.Node(graph.NodeID(source)); !exists {
			return nil, NewDomainError(NotFound, "edge source %s not found", source)
		}
		if _, exists := g.Node(graph.NodeID(target)); !exists {
			return nil, NewDomainError(NotFound, "edge target %s not found", target)
		}
		kind, _ := optionalString(cmd.Payload, "kind")
		var weight *float64
		if wv, ok := cmd.Payload["weight"].(canon.Float); ok {
			w := float64(wv)
			weight = &w
		}
		return []EventDraft{{
			Kind:          graph.KindEdgeAdded,
			CorrelationID: correlationOf(cmd),
			Payload:       graph.EdgeAddedPayload(graph.EdgeID(id), graph.NodeID(source), graph.NodeID(target), kind, weight),
		}}, nil

	case "ChangeEdgeKind":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "edge_id")
		if err != nil {
			return nil, err
		}
		newID, err := requireString(cmd.Payload, "to_edge_id")
		if err != nil {
			return nil, err
		}
		newKind, err := requireString(cmd.Payload, "to")
		if err != nil {
			return nil, err
		}
		edge, exists := g.Edge(graph.EdgeID(id))
		if !exists {
			return nil, NewDomainError(NotFound, "edge %s not found", id)
		}
		if _, exists := g.Edge(graph.EdgeID(newID)); exists {
			return nil, NewDomainError(AlreadyExists, "edge %s already exists", newID)
		}
		correlation := correlationOf(cmd)
		// Edge kind is a value-object relationship, not an in-place field
		// (spec §8 S2): changing it is Removed+Added under a new edge id
		// with a shared correlation id, mirroring ReplaceNodeContent above.
		return []EventDraft{
			{
				Kind:          graph.KindEdgeRemoved,
				CorrelationID: correlation,
				Payload:       graph.EdgeRemovedPayload(graph.EdgeID(id)),
			},
			{
				Kind:          graph.KindEdgeAdded,
				CorrelationID: correlation,
				Payload:       graph.EdgeAddedPayload(graph.EdgeID(newID), edge.Source, edge.Target, newKind, edge.Weight),
			},
		}, nil

	case "RemoveEdge":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "edge_id")
		if err != nil {
			return nil, err
		}
		if _, exists := g.Edge(graph.EdgeID(id)); !exists {
			return nil, NewDomainError(NotFound, "edge %s not found", id)
		}
		return []EventDraft{{
			Kind:          graph.KindEdgeRemoved,
			CorrelationID: correlationOf(cmd),
			Payload:       graph.EdgeRemovedPayload(graph.EdgeID(id)),
		}}, nil

	case "ComposeSubgraph":
		if err := h.requireLive(g, cmd.AggregateID); err != nil {
			return nil, err
		}
		id, err := requireString(cmd.Payload, "subgraph_id")
		if err != nil {
			return nil, err
		}
		boundary, _ := optionalString(cmd.Payload, "boundary")
		membersVal, _ := cmd.Payload["members"].(canon.Array)
		members := make([]graph.NodeID, 0, len(membersVal))
		for _, m := range membersVal {
			s, ok := m.(canon.String)
			if !ok {
				continue
			}
			if _, exists := g.Node(graph.NodeID(s)); !exists {
				return nil, NewDomainError(NotFound, "subgraph member %s not found", s)
			}
			members = append(members, graph.NodeID(s))
		}
		return []EventDraft{{
			Kind:          graph.KindSubgraphComposed,
			CorrelationID: correlationOf(cmd),
			Payload:       graph.SubgraphComposedPayload(graph.SubgraphID(id), members, graph.BoundaryPolicy(boundary)),
		}}, nil

	default:
		return nil, NewDomainError(InvariantViolated, "unknown graph command %q", cmd.Kind)
	}
}

func (GraphHandler) requireLive(g *graph.Graph, aggregateID string) error {
	if g.ID() == "" {
		return NewDomainError(NotFound, "graph %s not found", aggregateID)
	}
	if g.Archived() {
		return NewDomainError(PreconditionFailed, "graph %s is archived", aggregateID)
	}
	return nil
}

func correlationOf(cmd Command) string {
	if v, ok := cmd.Payload["correlation_id"].(canon.String); ok && v != "" {
		return string(v)
	}
	return cmd.AggregateID
}

func requireString(obj canon.Object, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", NewDomainError(InvariantViolated, "missing required field %q", key)
	}
	s, ok := v.(canon.String)
	if !ok {
		return "", NewDomainError(InvariantViolated, "field %q must be a string", key)
	}
	return string(s), nil
}

func optionalString(obj canon.Object, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	s, ok := v.(canon.String)
	return string(s), ok
}

func optionalPosition(obj canon.Object, key string) graph.Position {
	v, ok := obj[key].(canon.Array)
	if !ok || len(v) != 3 {
		return graph.Position{}
	}
	x, _ := v[0].(canon.Float)
	y, _ := v[1].(canon.Float)
	z, _ := v[2].(canon.Float)
	return graph.Position{X: float64(x), Y: float64(y), Z: float64(z)}
}

func optionalFloats(obj canon.Object, key string) []float64 {
	v, ok := obj[key].(canon.Array)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(v))
	for _, elem := range v {
		if f, ok := elem.(canon.Float); ok {
			out = append(out, float64(f))
		}
	}
	return out
}
