package command

import (
	"context"
	"slices"
	"strings"
)

// LocalCommandParser matches whole inputs against keyword lists. Anything
// else is a chat message.
type LocalCommandParser struct {
	ResetKeywords  []string
	StatusKeywords []string
	QuitKeywords   []string
}

func NewLocalCommandParser() *LocalCommandParser {
	return &LocalCommandParser{
		ResetKeywords:  []string{"/reset", "/restart"},
		StatusKeywords: []string{"/status", "/fields"},
		QuitKeywords:   []string{"/quit", "/exit", "/q"},
	}
}

func (p *LocalCommandParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	switch {
	case slices.Contains(p.ResetKeywords, normalized):
		return Reset, nil
	case slices.Contains(p.StatusKeywords, normalized):
		return Status, nil
	case slices.Contains(p.QuitKeywords, normalized):
		return Quit, nil
	}
	return None, nil
}
