package extract

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tbxark/leadagent/types"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-()]{8,}\d`)
)

// LocalExtractor picks up emails and phone numbers without a model.
type LocalExtractor struct{}

func (LocalExtractor) Extract(ctx context.Context, utterance string) (types.Extraction, error) {
	var out types.Extraction
	if m := emailPattern.FindString(utterance); m != "" {
		out.Email = &m
	}
	if m := phonePattern.FindString(utterance); m != "" {
		out.Phone = &m
	}
	return out, nil
}

type FailbackExtractor struct {
	extractors []Extractor
}

func NewFailbackExtractor(extractors ...Extractor) *FailbackExtractor {
	return &FailbackExtractor{extractors: extractors}
}

func (e *FailbackExtractor) Extract(ctx context.Context, utterance string) (types.Extraction, error) {
	var lastErr error
	for _, extractor := range e.extractors {
		result, err := extractor.Extract(ctx, utterance)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return types.Extraction{}, nil
	}
	return types.Extraction{}, fmt.Errorf("all extractors failed: %w", lastErr)
}
