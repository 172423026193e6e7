// Package layout implements deterministic graph layout and structural
// analysis (spec component C8): force-directed and hierarchical layout,
// connected components, articulation points, and per-component density,
// diameter, and bipartiteness.
//
// Every algorithm here is a pure function of (topology, seed positions,
// parameters): given the same graph.Graph snapshot and the same inputs,
// it produces bit-identical binary64 output on every run, so that a
// layout computed once can be cached, diffed, or golden-tested. Sums over
// node sets are always taken in node-id order (see sortedNodeIDs) rather
// than map iteration order, which Go deliberately randomizes.
package layout
