package types

import (
	"errors"
	"time"
)

var ErrIncomplete = errors.New("lead fields incomplete")

// NewLeadRecord flattens complete fields into a lead record.
func NewLeadRecord(id, sessionID string, f Fields, at time.Time) (LeadRecord, error) {
	if !f.Complete() {
		return LeadRecord{}, ErrIncomplete
	}
	get := func(name Field) string {
		v, _ := f.Get(name)
		return v
	}
	return LeadRecord{
		ID:           id,
		SessionID:    sessionID,
		PropertyType: get(FieldPropertyType),
		Budget:       get(FieldBudget),
		Location:     get(FieldLocation),
		Name:         get(FieldName),
		Email:        get(FieldEmail),
		Phone:        get(FieldPhone),
		CapturedAt:   at,
	}, nil
}
