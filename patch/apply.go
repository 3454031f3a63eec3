package patch

import (
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/leadagent/types"
)

// Apply runs RFC 6902 operations against the JSON form of the fields.
func Apply(current types.Fields, ops []Operation) (types.Fields, error) {
	if len(ops) == 0 {
		return current, nil
	}

	currentJSON, err := sonic.Marshal(current)
	if err != nil {
		return current, fmt.Errorf("failed to marshal current fields: %w", err)
	}
	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return current, fmt.Errorf("failed to marshal patch operations: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return current, fmt.Errorf("failed to decode patch: %w", err)
	}
	modifiedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return current, fmt.Errorf("failed to apply patch: %w", err)
	}

	var result types.Fields
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return current, fmt.Errorf("patched fields are not valid: %w", err)
	}
	return result, nil
}
