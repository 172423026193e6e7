package layout

import (
	"hash/fnv"
	"math"

	"github.com/cimalchemist/alchemist/internal/graph"
)

// ForceParams configures the force-directed layout (spec §4.8).
type ForceParams struct {
	Repulsion   float64 // k_r
	Attraction  float64 // k_a
	RestLength  float64 // natural edge length
	Damping     float64 // in (0,1)
	Epsilon     float64 // max-displacement convergence threshold
	StableSteps int     // T: consecutive steps below Epsilon to declare converged
	MaxSteps    int      // S: hard cap
	MinDistance float64  // clamp to avoid division blowup at small d
}

// Validate checks the preconditions spec §4.8 requires before running the
// algorithm: "k_r > 0, k_a > 0, damping in (0,1) checked at entry".
func (p ForceParams) Validate() error {
	if p.Repulsion <= 0 {
		return &ConfigError{Field: "Repulsion", Reason: "must be > 0"}
	}
	if p.Attraction <= 0 {
		return &ConfigError{Field: "Attraction", Reason: "must be > 0"}
	}
	if p.Damping <= 0 || p.Damping >= 1 {
		return &ConfigError{Field: "Damping", Reason: "must be in (0,1)"}
	}
	if p.MaxSteps <= 0 {
		return &ConfigError{Field: "MaxSteps", Reason: "must be > 0"}
	}
	if p.MinDistance <= 0 {
		return &ConfigError{Field: "MinDistance", Reason: "must be > 0"}
	}
	return nil
}

// DefaultForceParams gives a reasonable starting point for a 2-D/3-D
// layout of small-to-medium graphs.
func DefaultForceParams() ForceParams {
	return ForceParams{
		Repulsion:   1.0,
		Attraction:  0.05,
		RestLength:  1.0,
		Damping:     0.85,
		Epsilon:     1e-4,
		StableSteps: 5,
		MaxSteps:    1000,
		MinDistance: 1e-6,
	}
}

// ForceDirected runs spec §4.8's force-directed algorithm to convergence
// (or the hard step cap) and returns the final position of every live
// node. It is deterministic: the same graph, seed, and params always
// yield bit-identical binary64 coordinates (spec scenario S7).
//
// Each node experiences a repulsive force from every other node
// proportional to k_r/d^2 (clamped at MinDistance) and an attractive
// force along each incident edge proportional to k_a*(d-RestLength).
// Positions update by semi-implicit Euler (velocity updated from force
// first, then position from the updated velocity) with Damping applied
// to velocity each step.
func ForceDirected(g *graph.Graph, params ForceParams) (map[graph.NodeID]graph.Position, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ids := sortedNodeIDs(g)
	n := len(ids)
	pos := make(map[graph.NodeID]graph.Position, n)
	vel := make(map[graph.NodeID]graph.Position, n)
	for _, id := range ids {
		node, _ := g.Node(id)
		pos[id] = seedPosition(g, id, node.Pos)
		vel[id] = graph.Position{}
	}

	stableCount := 0
	for step := 0; step < params.MaxSteps; step++ {
		force := make(map[graph.NodeID]graph.Position, n)

		for i, a := range ids {
			for j := i + 1; j < n; j++ {
				b := ids[j]
				fx, fy, fz := repulsiveForce(pos[a], pos[b], params)
				fa := force[a]
				fa.X += fx
				fa.Y += fy
				fa.Z += fz
				force[a] = fa
				fb := force[b]
				fb.X -= fx
				fb.Y -= fy
				fb.Z -= fz
				force[b] = fb
			}
		}

		for _, eid := range g.Edges() {
			e, ok := g.Edge(eid)
			if !ok {
				continue
			}
			fx, fy, fz := attractiveForce(pos[e.Source], pos[e.Target], params)
			fs := force[e.Source]
			fs.X += fx
			fs.Y += fy
			fs.Z += fz
			force[e.Source] = fs
			ft := force[e.Target]
			ft.X -= fx
			ft.Y -= fy
			ft.Z -= fz
			force[e.Target] = ft
		}

		maxDisp := 0.0
		for _, id := range ids {
			v := vel[id]
			f := force[id]
			v.X = (v.X + f.X) * params.Damping
			v.Y = (v.Y + f.Y) * params.Damping
			v.Z = (v.Z + f.Z) * params.Damping
			vel[id] = v

			p := pos[id]
			p.X += v.X
			p.Y += v.Y
			p.Z += v.Z
			pos[id] = p

			disp := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
			if disp > maxDisp {
				maxDisp = disp
			}
		}

		if maxDisp < params.Epsilon {
			stableCount++
			if stableCount >= params.StableSteps {
				break
			}
		} else {
			stableCount = 0
		}
	}

	return pos, nil
}

func repulsiveForce(a, b graph.Position, params ForceParams) (fx, fy, fz float64) {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	d := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if d < params.MinDistance {
		d = params.MinDistance
	}
	mag := params.Repulsion / (d * d)
	return (dx / d) * mag, (dy / d) * mag, (dz / d) * mag
}

func attractiveForce(a, b graph.Position, params ForceParams) (fx, fy, fz float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	d := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if d < params.MinDistance {
		d = params.MinDistance
	}
	mag := params.Attraction * (d - params.RestLength)
	return (dx / d) * mag, (dy / d) * mag, (dz / d) * mag
}

// seedPosition returns the node's already-assigned position if it is
// non-zero, otherwise a deterministic seed derived from a hash of its id
// (spec §4.8's incrementality rule for NodeAdded).
func seedPosition(g *graph.Graph, id graph.NodeID, existing graph.Position) graph.Position {
	if existing != (graph.Position{}) {
		return existing
	}
	return SeedFromID(id)
}

// SeedFromID derives a deterministic small offset from id's FNV-1a hash,
// used as the initial position for a newly added node before any layout
// pass has placed it.
func SeedFromID(id graph.NodeID) graph.Position {
	h := fnv.New64a()
	h.Write([]byte(id))
	sum := h.Sum64()
	x := float64(sum%1000) / 1000.0
	y := float64((sum/1000)%1000) / 1000.0
	z := float64((sum/1000000)%1000) / 1000.0
	return graph.Position{X: x, Y: y, Z: z}
}
