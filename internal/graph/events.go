package graph

import (
	"fmt"

	"github.com/cimalchemist/alchemist/internal/canon"
)

// Event kinds form the dotted subject suffix (see internal/transport) and
// the tag dispatched on by Apply. They are a closed set, resolved by a
// string switch rather than an open registry (spec §9: "resolved once at
// startup, never per event" — here resolved per Apply call, since the
// set itself never grows at runtime).
const (
	KindGraphCreated   = "graph_created"
	KindGraphArchived  = "graph_archived"
	KindNodeAdded      = "node_added"
	KindNodeRemoved    = "node_removed"
	KindNodeMoved      = "node_moved"
	KindNodeContentRemoved = "node_content_removed"
	KindNodeContentAdded   = "node_content_added"
	KindEdgeAdded      = "edge_added"
	KindEdgeRemoved    = "edge_removed"
	KindSubgraphComposed = "subgraph_composed"
	KindSubgraphRemoved  = "subgraph_removed"
)

// EventView is the minimal read-only projection of an eventlog.Event that
// Apply needs: the stream-order sequence, the dispatch tag, and a decoded
// payload. internal/aggregate constructs these from eventlog.Event so that
// internal/graph has no dependency on the event store itself.
type EventView struct {
	Sequence int64
	Kind     string
	Payload  canon.Object
}

// OutOfOrder is returned by Apply when an event's sequence does not
// immediately follow the graph's current sequence. The graph never
// reorders or buffers; the bridge is responsible for delivering events in
// stream order.
type OutOfOrder struct {
	Expected int64
	Got      int64
}

func (e *OutOfOrder) Error() string {
	return fmt.Sprintf("graph: out-of-order event: expected sequence %d, got %d", e.Expected, e.Got)
}

// --- payload builders (used by internal/aggregate when drafting events) ---

func GraphCreatedPayload(id string) canon.Object {
	return canon.NewObject(canon.P("graph_id", canon.String(id)))
}

func GraphArchivedPayload() canon.Object {
	return canon.NewObject()
}

func NodeAddedPayload(id NodeID, label string, pos Position, nodeType string, semantic []float64) canon.Object {
	return canon.NewObject(
		canon.P("node_id", canon.String(id)),
		canon.P("label", canon.String(label)),
		canon.P("type", canon.String(nodeType)),
		canon.P("pos", positionValue(pos)),
		canon.P("semantic", semanticValue(semantic)),
	)
}

func NodeRemovedPayload(id NodeID) canon.Object {
	return canon.NewObject(canon.P("node_id", canon.String(id)))
}

func NodeMovedPayload(id NodeID, pos Position) canon.Object {
	return canon.NewObject(
		canon.P("node_id", canon.String(id)),
		canon.P("pos", positionValue(pos)),
	)
}

func NodeContentRemovedPayload(id NodeID, contentSeq int64) canon.Object {
	return canon.NewObject(
		canon.P("node_id", canon.String(id)),
		canon.P("content_seq", canon.Int(contentSeq)),
	)
}

func NodeContentAddedPayload(id NodeID, contentSeq int64, label, nodeType string, attrs canon.Object) canon.Object {
	return canon.NewObject(
		canon.P("node_id", canon.String(id)),
		canon.P("content_seq", canon.Int(contentSeq)),
		canon.P("label", canon.String(label)),
		canon.P("type", canon.String(nodeType)),
		canon.P("attrs", attrs),
	)
}

func EdgeAddedPayload(id EdgeID, source, target NodeID, kind string, weight *float64) canon.Object {
	pairs := []canon.Pair{
		canon.P("edge_id", canon.String(id)),
		canon.P("source", canon.String(source)),
		canon.P("target", canon.String(target)),
		canon.P("kind", canon.String(kind)),
	}
	if weight != nil {
		pairs = append(pairs, canon.P("weight", canon.Float(*weight)))
	}
	return canon.NewObject(pairs...)
}

func EdgeRemovedPayload(id EdgeID) canon.Object {
	return canon.NewObject(canon.P("edge_id", canon.String(id)))
}

func SubgraphComposedPayload(id SubgraphID, members []NodeID, boundary BoundaryPolicy) canon.Object {
	arr := make(canon.Array, len(members))
	for i, m := range members {
		arr[i] = canon.String(m)
	}
	return canon.NewObject(
		canon.P("subgraph_id", canon.String(id)),
		canon.P("members", arr),
		canon.P("boundary", canon.String(string(boundary))),
	)
}

func SubgraphRemovedPayload(id SubgraphID) canon.Object {
	return canon.NewObject(canon.P("subgraph_id", canon.String(id)))
}

func positionValue(p Position) canon.Array {
	return canon.Array{canon.Float(p.X), canon.Float(p.Y), canon.Float(p.Z)}
}

func semanticValue(v []float64) canon.Array {
	arr := make(canon.Array, len(v))
	for i, f := range v {
		arr[i] = canon.Float(f)
	}
	return arr
}
