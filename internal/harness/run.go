package harness

import (
	"context"
	"fmt"

	"github.com/cimalchemist/alchemist/internal/aggregate"
	"github.com/cimalchemist/alchemist/internal/canon"
)

// Run issues scenario's steps in order against rt, targeting
// scenario.AggregateID, and records a trace of the outcome.
//
// Execution stops at the first failing step — later steps are recorded
// neither as committed nor as failed, matching the teacher's convention
// that a scenario's trace ends where the flow actually stopped.
func Run[S any](ctx context.Context, rt *aggregate.Runtime[S], scenario *Scenario) (*Result, error) {
	result := newResult()

	for i, step := range scenario.Steps {
		payload, err := stepPayload(step.Args)
		if err != nil {
			return nil, fmt.Errorf("harness: scenario %s step %d: %w", scenario.Name, i, err)
		}

		cmd := aggregate.Command{
			AggregateID: scenario.AggregateID,
			Kind:        step.Kind,
			Payload:     payload,
		}

		committed, _, err := rt.Handle(ctx, cmd)
		if err != nil {
			result.recordError(i, step.Kind, err)
			break
		}
		for _, ev := range committed {
			result.recordCommitted(i, step.Kind, ev.CID.String(), ev.Sequence)
		}
	}

	return result, nil
}

// stepPayload converts a YAML-decoded args map into a canon.Object. YAML
// (unlike json.Decoder with UseNumber) hands back plain ints and
// float64s, so this does its own conversion rather than reusing
// canon.FromJSON's stricter json.Number expectations.
func stepPayload(args map[string]interface{}) (canon.Object, error) {
	obj := make(canon.Object, len(args))
	for k, v := range args {
		cv, err := toCanonValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		obj[k] = cv
	}
	return obj, nil
}

func toCanonValue(v interface{}) (canon.Value, error) {
	switch val := v.(type) {
	case nil:
		return canon.Null{}, nil
	case bool:
		return canon.Bool(val), nil
	case string:
		return canon.String(val), nil
	case int:
		return canon.Int(val), nil
	case int64:
		return canon.Int(val), nil
	case float64:
		return canon.Float(val), nil
	case []interface{}:
		arr := make(canon.Array, len(val))
		for i, elem := range val {
			cv, err := toCanonValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return arr, nil
	case map[string]interface{}:
		obj := make(canon.Object, len(val))
		for k, elem := range val {
			cv, err := toCanonValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = cv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported YAML value type %T", v)
	}
}
