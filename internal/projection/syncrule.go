package projection

// SyncRule is a declarative policy rule compiled from an external source
// (see capabilities.PolicyCompiler): when a named projection's state
// satisfies a pattern, issue a command against an aggregate. It
// generalizes the teacher's when/where/then sync rule shape
// (internal/ir.SyncRule) from flow-scoped action chaining to
// projection-triggered aggregate commands.
type SyncRule struct {
	ID         string            `json:"id"`
	Projection string            `json:"projection"` // Projection.Name() this rule watches
	When       string            `json:"when"`        // event kind that triggers evaluation
	Where      map[string]string `json:"where,omitempty"` // field equality match against the event payload
	ThenDomain string            `json:"then_domain"`     // aggregate domain to command
	ThenKind   string            `json:"then_kind"`       // command kind to issue
}
