package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/cimalchemist/alchemist/internal/canon"
)

// AssertGolden compares result's trace against testdata/golden/<name>.golden,
// canonically encoded so the comparison is stable across machines and Go
// versions (same guarantee internal/layout's S7 determinism test relies on).
//
// To regenerate golden files: go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	obj := canon.NewObject(
		canon.P("pass", canon.Bool(result.Pass)),
		canon.P("trace", traceToCanonArray(result.Trace)),
	)
	encoded, err := canon.EncodeNormalForm(obj)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, encoded)
	return nil
}

func traceToCanonArray(trace []TraceEvent) canon.Array {
	arr := make(canon.Array, len(trace))
	for i, ev := range trace {
		pairs := []canon.Pair{
			canon.P("step_index", canon.Int(ev.StepIndex)),
			canon.P("kind", canon.String(ev.Kind)),
		}
		if ev.CID != "" {
			pairs = append(pairs, canon.P("cid", canon.String(ev.CID)))
			pairs = append(pairs, canon.P("sequence", canon.Int(ev.Sequence)))
		}
		if ev.Error != "" {
			pairs = append(pairs, canon.P("error", canon.String(ev.Error)))
		}
		arr[i] = canon.NewObject(pairs...)
	}
	return arr
}
