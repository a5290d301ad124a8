package dispatcher

import "strings"

// ResolveInput builds a step's input map from its input_mapping: a flat
// local-name -> workflow-variable-name map (spec's direct lookup
// V'[local] = variables[workflow]). A dotted workflow-variable name walks
// into nested maps, grounded on the teacher's
// internal/workflows/dataflow/resolver.go getNestedValue. There is no
// separate "steps.<id>" input namespace — a step only ever sees prior
// step output once it has been folded into variables via output_mapping.
func ResolveInput(mapping map[string]string, variables map[string]any) map[string]any {
	input := make(map[string]any, len(mapping))
	for local, workflowVar := range mapping {
		val, ok := getNested(variables, strings.Split(workflowVar, "."))
		if ok {
			input[local] = val
		}
	}
	return input
}

func getNested(root map[string]any, keys []string) (any, bool) {
	var cur any = root
	for _, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ApplyOutputMapping copies fields out of a step's output into the
// execution's variable namespace, per each dst-variable -> src-path rule
// in output_mapping. Unknown src paths are skipped, never an error:
// output_mapping describes optional promotion, not a required contract.
func ApplyOutputMapping(mapping map[string]string, output map[string]any, variables map[string]any) {
	for dst, path := range mapping {
		keys := strings.Split(path, ".")
		val, ok := getNested(output, keys)
		if ok {
			variables[dst] = val
		}
	}
}
