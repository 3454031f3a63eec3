package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/tbxark/leadagent/structured"
	"github.com/tbxark/leadagent/types"
)

// PromptMarker opens every extraction prompt.
const PromptMarker = "From this user message, extract any lead information."

const extractPromptTemplate = PromptMarker + `
User said: %q

Return JSON only:
{
  "property_type": "type or null",
  "budget": "amount or null",
  "location": "place or null",
  "name": "name or null",
  "email": "email or null",
  "phone": "phone or null"
}

Use null for anything the user did not say. Copy values as the user wrote them.`

type options struct {
	temperature float32
	timeout     time.Duration
	withSchema  bool
}

type Option func(*options)

func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = t }
}

// WithTimeout bounds each model call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithSchema appends the JSON schema of the expected object to the prompt.
func WithSchema(enabled bool) Option {
	return func(o *options) { o.withSchema = enabled }
}

func newOptions(opts []Option) options {
	o := options{temperature: 0.3, timeout: 30 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// PromptExtractor asks the model for a bare JSON object and decodes the text reply.
type PromptExtractor struct {
	chatModel model.BaseChatModel
	opts      options
	schema    string
}

func NewPromptExtractor(chatModel model.BaseChatModel, opts ...Option) (*PromptExtractor, error) {
	e := &PromptExtractor{chatModel: chatModel, opts: newOptions(opts)}
	if e.opts.withSchema {
		s, err := json.Marshal(jsonschema.Reflect(&types.Extraction{}))
		if err != nil {
			return nil, fmt.Errorf("marshal extraction schema: %w", err)
		}
		e.schema = string(s)
	}
	return e, nil
}

func (e *PromptExtractor) Extract(ctx context.Context, utterance string) (types.Extraction, error) {
	if strings.TrimSpace(utterance) == "" {
		return types.Extraction{}, nil
	}
	if e.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.timeout)
		defer cancel()
	}
	prompt := fmt.Sprintf(extractPromptTemplate, utterance)
	if e.schema != "" {
		prompt += fmt.Sprintf("\n\nJSON schema:\n```json\n%s\n```", e.schema)
	}
	resp, err := e.chatModel.Generate(ctx, []*schema.Message{schema.SystemMessage(prompt)},
		model.WithTemperature(e.opts.temperature))
	if err != nil {
		return types.Extraction{}, fmt.Errorf("LLM call failed: %w", err)
	}
	out, err := structured.DecodeJSON[types.Extraction](resp.Content)
	if err != nil {
		return types.Extraction{}, err
	}
	return *out, nil
}
