package extract

import (
	"context"

	"github.com/tbxark/leadagent/types"
)

// Extractor derives lead fields from one user utterance. Implementations
// return the zero Extraction together with any error, so callers can always
// merge the result.
type Extractor interface {
	Extract(ctx context.Context, utterance string) (types.Extraction, error)
}
