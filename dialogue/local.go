package dialogue

import (
	"context"
	"errors"
	"fmt"
)

var localQuestions = map[string]string{
	"property_type": "What kind of place are you looking for?",
	"budget":        "What's your budget looking like?",
	"location":      "Which area or city interests you?",
	"name":          "By the way, what should I call you?",
	"email":         "What's your email so I can send you listings?",
	"phone":         "Best number to reach you at?",
}

// LocalDialogueGenerator asks for the first missing field with a canned question.
type LocalDialogueGenerator struct{}

func (LocalDialogueGenerator) GenerateDialogue(ctx context.Context, req *Request) (string, error) {
	if !req.needsModel() {
		return AllCollectedMessage, nil
	}
	missing := req.Fields.Missing()
	if q, ok := localQuestions[string(missing[0])]; ok {
		return q, nil
	}
	return fmt.Sprintf("Could you tell me your %s?", missing[0]), nil
}

type FailbackDialogueGenerator struct {
	generators []Generator
}

func NewFailbackDialogueGenerator(generators ...Generator) *FailbackDialogueGenerator {
	return &FailbackDialogueGenerator{generators: generators}
}

func (g *FailbackDialogueGenerator) GenerateDialogue(ctx context.Context, req *Request) (string, error) {
	lastErr := errors.New("no dialogue generators configured")
	for _, generator := range g.generators {
		reply, err := generator.GenerateDialogue(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all dialogue generators failed: %w", lastErr)
}
