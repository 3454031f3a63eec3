package agent

import (
	"context"

	"github.com/tbxark/leadagent/types"
)

// Sink durably records a completed lead.
type Sink interface {
	Save(ctx context.Context, lead types.LeadRecord) error
}

type SinkFunc func(ctx context.Context, lead types.LeadRecord) error

func (f SinkFunc) Save(ctx context.Context, lead types.LeadRecord) error {
	return f(ctx, lead)
}
