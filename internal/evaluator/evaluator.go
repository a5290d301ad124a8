// Package evaluator provides the restricted expression evaluator shared
// by condition steps and data_transform steps (spec.md §4.5, §9 design
// note "restricted expression evaluator"). It is grounded on the
// teacher's internal/workflows/starlark_validator.go, which parses the
// same expression grammar (Starlark) for static validation; this package
// reuses go.starlark.net to additionally execute it, sandboxed by
// construction since Starlark has no I/O, no imports, and a bounded
// execution step count.
package evaluator

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// maxSteps bounds Starlark execution so a pathological expression cannot
// spin forever inside the engine process.
const maxSteps = 100000

// ValidateExpression parses expr as a standalone Starlark expression and
// returns a descriptive error on the first syntax problem, without
// executing it. Used by the validator (C1) to reject malformed
// condition/transform expressions before a run ever reaches them.
func ValidateExpression(expr string) error {
	_, err := syntax.ParseExpr("expr", expr, 0)
	if err != nil {
		return fmt.Errorf("invalid expression: %w", err)
	}
	return nil
}

// EvaluateCondition runs expr with vars bound as globals and expects a
// boolean result (spec.md §4.5 condition step). A non-boolean result is
// an evaluation_error, never silently coerced.
func EvaluateCondition(expr string, vars map[string]any) (bool, error) {
	val, err := eval(expr, vars)
	if err != nil {
		return false, err
	}
	b, ok := val.(starlark.Bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean: got %s", val.Type())
	}
	return bool(b), nil
}

// EvaluateTransform runs expr with vars bound as globals and returns the
// result converted back to a plain Go value (spec.md §4.5 data_transform
// step).
func EvaluateTransform(expr string, vars map[string]any) (any, error) {
	val, err := eval(expr, vars)
	if err != nil {
		return nil, err
	}
	return unwrap(val)
}

func eval(expr string, vars map[string]any) (starlark.Value, error) {
	globals, err := toStarlarkDict(vars)
	if err != nil {
		return nil, fmt.Errorf("failed to bind variables: %w", err)
	}

	thread := &starlark.Thread{
		Name: "evaluator",
	}
	thread.SetMaxExecutionSteps(maxSteps)

	val, err := starlark.Eval(thread, "<expr>", expr, globals)
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("evaluation failed: %s", evalErr.Msg)
		}
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	return val, nil
}

func toStarlarkDict(vars map[string]any) (starlark.StringDict, error) {
	dict := make(starlark.StringDict, len(vars))
	for k, v := range vars {
		sv, err := toStarlarkValue(v)
		if err != nil {
			return nil, err
		}
		dict[k] = sv
	}
	return dict, nil
}

func toStarlarkValue(v any) (starlark.Value, error) {
	switch t := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(t), nil
	case string:
		return starlark.String(t), nil
	case int:
		return starlark.MakeInt(t), nil
	case int64:
		return starlark.MakeInt64(t), nil
	case float64:
		return starlark.Float(t), nil
	case []any:
		elems := make([]starlark.Value, len(t))
		for i, e := range t {
			sv, err := toStarlarkValue(e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		dict := starlark.NewDict(len(t))
		for k, e := range t {
			sv, err := toStarlarkValue(e)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported variable type %T", v)
	}
}

func unwrap(v starlark.Value) (any, error) {
	switch t := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(t), nil
	case starlark.String:
		return string(t), nil
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return i, nil
		}
		return t.String(), nil
	case starlark.Float:
		return float64(t), nil
	case *starlark.List:
		out := make([]any, 0, t.Len())
		for i := 0; i < t.Len(); i++ {
			elem, err := unwrap(t.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, 0, len(t))
		for _, e := range t {
			elem, err := unwrap(e)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, t.Len())
		for _, item := range t.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("unsupported dict key type %s", item[0].Type())
			}
			val, err := unwrap(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported result type %s", v.Type())
	}
}
