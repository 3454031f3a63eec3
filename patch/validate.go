package patch

import (
	"fmt"

	"github.com/tbxark/leadagent/types"
)

// AllowedPaths is the set of JSON pointers a merge may write.
func AllowedPaths() map[string]bool {
	allowed := make(map[string]bool, len(types.AllFields))
	for _, name := range types.AllFields {
		allowed[pointer(name)] = true
	}
	return allowed
}

// ValidateOperations rejects writes outside the allowed paths and removals,
// since a collected field is never cleared.
func ValidateOperations(ops []Operation, allowedPaths map[string]bool) error {
	for i, op := range ops {
		if op.Op == OperationRemove {
			return fmt.Errorf("operation %d: remove of %q is not permitted", i, op.Path)
		}
		if len(allowedPaths) > 0 && !allowedPaths[op.Path] {
			return fmt.Errorf("operation %d: path %q is not in the allowed paths set", i, op.Path)
		}
	}
	return nil
}

func pointer(name types.Field) string {
	return "/" + escapeJSONPointer(string(name))
}

func escapeJSONPointer(token string) string {
	result := ""
	for _, ch := range token {
		switch ch {
		case '~':
			result += "~0"
		case '/':
			result += "~1"
		default:
			result += string(ch)
		}
	}
	return result
}
