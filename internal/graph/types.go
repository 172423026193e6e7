package graph

import (
	"errors"

	"github.com/cimalchemist/alchemist/internal/canon"
)

// Sentinel errors for graph model operations.
var (
	ErrEmptyNodeID  = errors.New("graph: node ID is empty")
	ErrNodeNotFound = errors.New("graph: node not found")
	ErrEdgeNotFound = errors.New("graph: edge not found")
)

// NodeID, EdgeID, and SubgraphID are opaque stable identifiers, unique
// within one Graph.
type NodeID string
type EdgeID string
type SubgraphID string

// Position is a 3-D conceptual coordinate. Positions are derived by the
// layout engine, never authoritative (spec §3).
type Position struct {
	X, Y, Z float64
}

// Node is an entity in the graph: a stable identity plus mutable content
// (label, semantic coordinates, type tag, attributes) and a derived
// layout position.
type Node struct {
	ID         NodeID
	Label      string
	Pos        Position
	Semantic   []float64 // k-D semantic vector; k is fixed per graph
	Type       string
	Attrs      canon.Object
	ContentSeq int64 // increments each time content is replaced (value-object identity marker)
}

// Edge is a directed, value-object relationship between two nodes. Its
// Kind may only change by Removed+Added with a new EdgeID (spec §3, §4.4).
type Edge struct {
	ID     EdgeID
	Source NodeID
	Target NodeID
	Kind   string
	Weight *float64
	Attrs  canon.Object
}

// BoundaryPolicy selects how a Subgraph's spatial extent is computed for
// rendering.
type BoundaryPolicy string

const (
	BoundaryConvexHull   BoundaryPolicy = "convex_hull"
	BoundaryBoundingBox  BoundaryPolicy = "bounding_box"
	BoundaryCircle       BoundaryPolicy = "circle"
)

// Subgraph owns a (possibly overlapping) membership set over the owning
// Graph's nodes.
type Subgraph struct {
	ID       SubgraphID
	Members  map[NodeID]struct{}
	Boundary BoundaryPolicy
}

// Direction selects which adjacency list Neighbors walks.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)
