package cue

import (
	"context"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/cimalchemist/alchemist/internal/capabilities"
	"github.com/cimalchemist/alchemist/internal/projection"
)

var _ capabilities.PolicyCompiler = CUEPolicyCompiler{}

// PolicyCompileError reports a CUE policy document that failed to
// compile into sync rules.
type PolicyCompileError struct {
	Rule    string
	Message string
}

func (e *PolicyCompileError) Error() string {
	return fmt.Sprintf("cue policy compiler: %s: %s", e.Rule, e.Message)
}

// CUEPolicyCompiler compiles a CUE document of the shape
//
//	sync: "rebalance-on-overflow": {
//		projection:  "graph-summary"
//		when:        "node_added"
//		then_domain: "graph"
//		then_kind:   "ComposeSubgraph"
//	}
//
// into projection.SyncRule values, generalizing the teacher's
// CompileSync (internal/compiler/sync.go) from when/where/then flow
// chaining to projection-triggered aggregate commands.
type CUEPolicyCompiler struct{}

// Compile parses source as a CUE document and extracts every entry
// under the top-level "sync" struct.
func (CUEPolicyCompiler) Compile(ctx context.Context, source []byte) ([]projection.SyncRule, error) {
	ctxCUE := cuecontext.New()
	v := ctxCUE.CompileBytes(source)
	if err := v.Err(); err != nil {
		return nil, &PolicyCompileError{Rule: "<root>", Message: err.Error()}
	}

	syncVal := v.LookupPath(cue.ParsePath("sync"))
	if !syncVal.Exists() {
		return nil, nil
	}

	var rules []projection.SyncRule
	iter, err := syncVal.Fields()
	if err != nil {
		return nil, &PolicyCompileError{Rule: "<root>", Message: err.Error()}
	}
	for iter.Next() {
		label := iter.Selector().String()
		rule, err := compileRule(label, iter.Value())
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileRule(id string, v cue.Value) (projection.SyncRule, error) {
	rule := projection.SyncRule{ID: id}

	proj, err := v.LookupPath(cue.ParsePath("projection")).String()
	if err != nil {
		return rule, &PolicyCompileError{Rule: id, Message: "projection: " + err.Error()}
	}
	rule.Projection = proj

	when, err := v.LookupPath(cue.ParsePath("when")).String()
	if err != nil {
		return rule, &PolicyCompileError{Rule: id, Message: "when: " + err.Error()}
	}
	rule.When = when

	thenDomain, err := v.LookupPath(cue.ParsePath("then_domain")).String()
	if err != nil {
		return rule, &PolicyCompileError{Rule: id, Message: "then_domain: " + err.Error()}
	}
	rule.ThenDomain = thenDomain

	thenKind, err := v.LookupPath(cue.ParsePath("then_kind")).String()
	if err != nil {
		return rule, &PolicyCompileError{Rule: id, Message: "then_kind: " + err.Error()}
	}
	rule.ThenKind = thenKind

	whereVal := v.LookupPath(cue.ParsePath("where"))
	if whereVal.Exists() {
		where := make(map[string]string)
		whereIter, err := whereVal.Fields()
		if err != nil {
			return rule, &PolicyCompileError{Rule: id, Message: "where: " + err.Error()}
		}
		for whereIter.Next() {
			s, err := whereIter.Value().String()
			if err != nil {
				return rule, &PolicyCompileError{Rule: id, Message: "where: " + err.Error()}
			}
			where[whereIter.Selector().String()] = s
		}
		rule.Where = where
	}

	return rule, nil
}
