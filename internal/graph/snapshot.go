package graph

import (
	"encoding/json"
	"fmt"

	"github.com/cimalchemist/alchemist/internal/canon"
)

// snapshotDTO is the JSON-serializable form of a Graph's state, stored via
// eventlog.Snapshot and restored via Restore. It carries only live
// entries: Restore rebuilds the arena and adjacency lists from scratch, so
// a restored Graph is indistinguishable from one rebuilt by full replay up
// to NextSeq, aside from tombstone slots for already-removed entries.
type snapshotDTO struct {
	ID       string           `json:"id"`
	Archived bool             `json:"archived"`
	NextSeq  int64            `json:"next_seq"`
	Nodes    []nodeDTO        `json:"nodes"`
	Edges    []edgeDTO        `json:"edges"`
	Subgraphs []subgraphDTO   `json:"subgraphs"`
}

type nodeDTO struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Type       string          `json:"type"`
	Pos        [3]float64      `json:"pos"`
	Semantic   []float64       `json:"semantic,omitempty"`
	Attrs      json.RawMessage `json:"attrs,omitempty"`
	ContentSeq int64           `json:"content_seq"`
}

type edgeDTO struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Target string          `json:"target"`
	Kind   string          `json:"kind"`
	Weight *float64        `json:"weight,omitempty"`
	Attrs  json.RawMessage `json:"attrs,omitempty"`
}

type subgraphDTO struct {
	ID       string   `json:"id"`
	Members  []string `json:"members"`
	Boundary string   `json:"boundary"`
}

// Snapshot serializes the graph's current live state for durable storage
// (spec §4.2's snapshot_interval_events). It does not capture tombstoned
// entries: Restore reconstructs the arena with only what Snapshot wrote,
// which is equivalent to a fresh replay from NextSeq because tombstones
// carry no further observable state once removed.
func (g *Graph) Snapshot() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dto := snapshotDTO{ID: g.id, Archived: g.archived, NextSeq: g.nextSeq}
	for _, e := range g.nodes {
		if !e.alive {
			continue
		}
		attrsJSON, err := canon.MarshalJSON(e.node.Attrs)
		if err != nil {
			return nil, fmt.Errorf("graph: snapshot node %q attrs: %w", e.node.ID, err)
		}
		dto.Nodes = append(dto.Nodes, nodeDTO{
			ID:         string(e.node.ID),
			Label:      e.node.Label,
			Type:       e.node.Type,
			Pos:        [3]float64{e.node.Pos.X, e.node.Pos.Y, e.node.Pos.Z},
			Semantic:   e.node.Semantic,
			Attrs:      attrsJSON,
			ContentSeq: e.node.ContentSeq,
		})
	}
	for _, e := range g.edges {
		if !e.alive {
			continue
		}
		attrsJSON, err := canon.MarshalJSON(e.edge.Attrs)
		if err != nil {
			return nil, fmt.Errorf("graph: snapshot edge %q attrs: %w", e.edge.ID, err)
		}
		dto.Edges = append(dto.Edges, edgeDTO{
			ID:     string(e.edge.ID),
			Source: string(e.edge.Source),
			Target: string(e.edge.Target),
			Kind:   e.edge.Kind,
			Weight: e.edge.Weight,
			Attrs:  attrsJSON,
		})
	}
	for _, e := range g.subgraphs {
		if !e.alive {
			continue
		}
		members := make([]string, 0, len(e.subgraph.Members))
		for m := range e.subgraph.Members {
			members = append(members, string(m))
		}
		dto.Subgraphs = append(dto.Subgraphs, subgraphDTO{
			ID:       string(e.subgraph.ID),
			Members:  members,
			Boundary: string(e.subgraph.Boundary),
		})
	}
	return json.Marshal(dto)
}

// Restore rebuilds a Graph from bytes produced by Snapshot. The returned
// graph's NextSequence reports the snapshot's NextSeq; the caller replays
// any events from that sequence onward to catch up to the stream head.
func Restore(data []byte) (*Graph, error) {
	var dto snapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("graph: restore: %w", err)
	}

	g := New()
	g.id = dto.ID
	g.archived = dto.Archived
	g.nextSeq = dto.NextSeq

	for _, n := range dto.Nodes {
		attrs := canon.Object{}
		if len(n.Attrs) > 0 {
			v, err := canon.Decode(n.Attrs)
			if err != nil {
				return nil, fmt.Errorf("graph: restore node %q attrs: %w", n.ID, err)
			}
			if obj, ok := v.(canon.Object); ok {
				attrs = obj
			}
		}
		node := Node{
			ID:         NodeID(n.ID),
			Label:      n.Label,
			Type:       n.Type,
			Pos:        Position{X: n.Pos[0], Y: n.Pos[1], Z: n.Pos[2]},
			Semantic:   n.Semantic,
			Attrs:      attrs,
			ContentSeq: n.ContentSeq,
		}
		g.nodeIndex[node.ID] = len(g.nodes)
		g.nodes = append(g.nodes, nodeEntry{alive: true, node: node})
	}

	for _, e := range dto.Edges {
		attrs := canon.Object{}
		if len(e.Attrs) > 0 {
			v, err := canon.Decode(e.Attrs)
			if err != nil {
				return nil, fmt.Errorf("graph: restore edge %q attrs: %w", e.ID, err)
			}
			if obj, ok := v.(canon.Object); ok {
				attrs = obj
			}
		}
		edge := Edge{
			ID:     EdgeID(e.ID),
			Source: NodeID(e.Source),
			Target: NodeID(e.Target),
			Kind:   e.Kind,
			Weight: e.Weight,
			Attrs:  attrs,
		}
		g.edgeIndex[edge.ID] = len(g.edges)
		g.edges = append(g.edges, edgeEntry{alive: true, edge: edge})

		if srcIdx, ok := g.nodeIndex[edge.Source]; ok {
			g.nodes[srcIdx].out = append(g.nodes[srcIdx].out, edge.ID)
		}
		if tgtIdx, ok := g.nodeIndex[edge.Target]; ok {
			g.nodes[tgtIdx].in = append(g.nodes[tgtIdx].in, edge.ID)
		}
	}

	for _, s := range dto.Subgraphs {
		members := make(map[NodeID]struct{}, len(s.Members))
		for _, m := range s.Members {
			members[NodeID(m)] = struct{}{}
		}
		sg := Subgraph{ID: SubgraphID(s.ID), Members: members, Boundary: BoundaryPolicy(s.Boundary)}
		g.subgraphIndex[sg.ID] = len(g.subgraphs)
		g.subgraphs = append(g.subgraphs, subgraphEntry{alive: true, subgraph: sg})
	}

	return g, nil
}
