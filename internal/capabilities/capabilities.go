// Package capabilities declares the named interfaces for spec.md §1's
// excluded external collaborators: presentation, UI chrome, external
// configuration, AI assistance, parsing of foreign graph formats,
// deployment automation, and policy compilation. Their internals are
// explicitly free to vary (§1); this package fixes only the boundary
// each one crosses into the core.
package capabilities

import (
	"context"

	"github.com/cimalchemist/alchemist/internal/config"
	"github.com/cimalchemist/alchemist/internal/graph"
	"github.com/cimalchemist/alchemist/internal/projection"
)

// Renderer draws a graph snapshot to whatever presentation layer it
// owns (terminal, web canvas, native UI). Out of scope per spec.md §1.
type Renderer interface {
	RenderGraph(ctx context.Context, snapshot []byte) error
}

// UIEvent is a notification surfaced to UIChrome.
type UIEvent struct {
	Kind    string
	Message string
}

// UIChrome receives operator-facing notifications (toasts, status bar
// updates) the core has no opinion on how to display.
type UIChrome interface {
	Notify(ctx context.Context, event UIEvent) error
}

// ConfigSource loads a Config from wherever the deployment keeps it
// (file, remote service, flag overlay). internal/config itself never
// reads from disk; that boundary lives here.
type ConfigSource interface {
	Load(ctx context.Context) (config.Config, error)
}

// AIProvider completes a prompt against whatever model backend a
// deployment wires in. Not used by the core event/aggregate/projection
// pipeline; reserved for future assistive tooling.
type AIProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GraphParser converts a foreign serialization (GraphML, DOT, a
// hand-rolled JSON export) into a graph.Graph snapshot the core can
// restore from.
type GraphParser interface {
	Parse(ctx context.Context, raw []byte) (*graph.Graph, error)
}

// DeploymentAutomation applies an operational plan (infra change,
// rollout) the core has no business executing itself.
type DeploymentAutomation interface {
	Apply(ctx context.Context, plan []byte) error
}

// PolicyCompiler compiles a declarative source into projection sync
// rules. See internal/capabilities/cue for the reference adapter.
type PolicyCompiler interface {
	Compile(ctx context.Context, source []byte) ([]projection.SyncRule, error)
}
