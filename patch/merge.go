package patch

import (
	"fmt"

	"github.com/tbxark/leadagent/types"
)

// Operations turns an extraction into patch operations: one per non-null
// value that differs from the current one, an add for an unset field and a
// replace for a set one. Unset fields are omitted from the JSON document.
// Null values produce nothing, so existing values are kept.
func Operations(current types.Fields, extracted types.Extraction) []Operation {
	values := extracted.Values()
	ops := make([]Operation, 0, len(values))
	for _, name := range types.AllFields {
		v, ok := values[name]
		if !ok {
			continue
		}
		op := OperationAdd
		if old, set := current.Get(name); set {
			if old == v {
				continue
			}
			op = OperationReplace
		}
		ops = append(ops, Operation{Op: op, Path: pointer(name), Value: v})
	}
	return ops
}

// Merge applies the extraction to current and returns the merged fields and
// the operations that were applied.
func Merge(current types.Fields, extracted types.Extraction) (types.Fields, []Operation, error) {
	ops := Operations(current, extracted)
	if len(ops) == 0 {
		return current, nil, nil
	}
	if err := ValidateOperations(ops, AllowedPaths()); err != nil {
		return current, nil, fmt.Errorf("invalid merge operations: %w", err)
	}
	merged, err := Apply(current, ops)
	if err != nil {
		return current, nil, err
	}
	return merged, ops, nil
}
