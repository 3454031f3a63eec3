package extract

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/leadagent/structured"
	"github.com/tbxark/leadagent/types"
)

const (
	recordFieldsToolName        = "record_lead_fields"
	recordFieldsToolDescription = "Record the lead details the user explicitly stated in their latest message. Use null for anything not stated."
)

// ToolBasedExtractor forces a tool call whose arguments are the extraction.
type ToolBasedExtractor struct {
	chain *structured.Chain[string, types.Extraction]
	opts  options
}

func NewToolBasedExtractor(chatModel model.ToolCallingChatModel, opts ...Option) (*ToolBasedExtractor, error) {
	chain, err := structured.NewChain[string, types.Extraction](
		chatModel,
		buildToolPrompt,
		recordFieldsToolName,
		recordFieldsToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedExtractor{chain: chain, opts: newOptions(opts)}, nil
}

func (e *ToolBasedExtractor) Extract(ctx context.Context, utterance string) (types.Extraction, error) {
	if e.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.timeout)
		defer cancel()
	}
	result, err := e.chain.Invoke(ctx, utterance, model.WithTemperature(e.opts.temperature))
	if err != nil {
		return types.Extraction{}, fmt.Errorf("LLM call failed: %w", err)
	}
	if result == nil {
		return types.Extraction{}, nil
	}
	return *result, nil
}

func buildToolPrompt(ctx context.Context, utterance string) ([]*schema.Message, error) {
	systemPrompt := fmt.Sprintf("You extract real estate lead details. Analyze the user message and call %s. Rules: only use information the user explicitly gave; copy values verbatim; use null for everything else.", recordFieldsToolName)
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(utterance),
	}, nil
}
