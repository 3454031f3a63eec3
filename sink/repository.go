package sink

import (
	"context"
	"errors"

	"github.com/tbxark/leadagent/types"
)

var ErrNotFound = errors.New("lead not found")

// StoredLead is a lead as kept by a Repository.
type StoredLead struct {
	types.LeadRecord
	PhoneE164 string `json:"phone_e164"`
}

// Repository is the record store of completed leads. Saving an id that
// already exists is a no-op, so replayed leads are not duplicated.
type Repository interface {
	Sink
	Get(ctx context.Context, id string) (*StoredLead, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
