package dialogue

import (
	"context"

	"github.com/tbxark/leadagent/types"
)

const (
	// AllCollectedMessage is returned instead of a model reply once every field is known.
	AllCollectedMessage = "Thank you! I have all your information. Let me save this for you."
	// FallbackMessage is the reply used when generation fails.
	FallbackMessage = "Sorry, I had trouble responding. Could you repeat that?"
)

type Request struct {
	History []types.Turn
	Fields  types.Fields
	Phase   types.Phase
}

// needsModel reports whether a reply has to be generated at all. A zero
// phase is collecting.
func (r *Request) needsModel() bool {
	collecting := r.Phase == "" || r.Phase == types.PhaseCollecting
	return collecting && !r.Fields.Complete()
}

type Generator interface {
	GenerateDialogue(ctx context.Context, req *Request) (string, error)
}
