// Package graph implements the in-memory graph model (spec component C7):
// nodes, directed edges, and subgraphs held in dense arenas with stable
// index handles, exposing O(1) lookup and O(deg) neighbor iteration.
//
// The graph is owned exclusively by the interactive thread (spec §5): the
// async side never calls Apply directly. Events reach it only through the
// bridge (internal/bridge), already in stream order; Apply rejects
// anything else with OutOfOrder rather than silently reordering.
//
// Arena layout follows the same mutex-guarded slice-of-entries shape the
// pack's katalvlaran-lvlath core package uses for its Vertex/Edge store,
// adapted here to hold graph-visualization node/edge content instead of
// pure topology.
package graph
