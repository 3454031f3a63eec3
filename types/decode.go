package types

import (
	"encoding/json"
	"strconv"

	"github.com/bytedance/sonic"
)

var numberAPI = sonic.Config{UseNumber: true}.Froze()

// UnmarshalJSON accepts any JSON scalar for a field, so a phone sent as a
// bare number keeps the rest of the object. Arrays and objects read as null.
func (e *Extraction) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := numberAPI.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Extraction{
		PropertyType: scalarText(raw[string(FieldPropertyType)]),
		Budget:       scalarText(raw[string(FieldBudget)]),
		Location:     scalarText(raw[string(FieldLocation)]),
		Name:         scalarText(raw[string(FieldName)]),
		Email:        scalarText(raw[string(FieldEmail)]),
		Phone:        scalarText(raw[string(FieldPhone)]),
	}
	return nil
}

func scalarText(v any) *string {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		return nil
	}
	return &s
}
