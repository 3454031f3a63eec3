package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/leadagent/types"
)

// DefaultDialogueSystemPromptTemplate is the persona used by ModelDialogueGenerator.
// The template may contain a single "%s" placeholder for the language.
const DefaultDialogueSystemPromptTemplate = `You are RealAI, a warm and experienced real estate consultant who genuinely cares about helping people find their dream home.

Your personality:
- Enthusiastic but not pushy. Conversational and relatable; talk like a friendly human, not a robot.
- Use casual language and contractions. React to what the client just said before asking anything.
- Use their name once you know it.

How to talk:
- Keep it SHORT: 1-2 sentences per reply.
- Ask for at most ONE missing detail per reply, in a natural way ("What's your budget looking like?").
- Never repeat a previous reply word for word; vary your phrasing.
- Never use phrases like "Could you please provide" or "I require".

Details to collect, without making it feel like an interrogation: property type, budget, location, name, email, phone.
The status block below tells you what is already known and what is still needed. Only ask for what is still needed.
Reply in %s.`

type dialogueGeneratorOptions struct {
	lang                 string
	systemPrompt         string
	systemPromptTemplate string
	window               int
	temperature          float32
	timeout              time.Duration
}

type GeneratorOption func(*dialogueGeneratorOptions)

// WithDialogueLang sets the language used by the default system prompt template.
func WithDialogueLang(lang string) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.lang = lang
	}
}

// WithDialogueSystemPrompt overrides the system prompt used by ModelDialogueGenerator.
func WithDialogueSystemPrompt(systemPrompt string) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.systemPrompt = systemPrompt
	}
}

// WithDialogueSystemPromptTemplate overrides the system prompt template used by ModelDialogueGenerator.
// If the template contains "%s", it will be formatted with the language.
func WithDialogueSystemPromptTemplate(systemPromptTemplate string) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.systemPromptTemplate = systemPromptTemplate
	}
}

// WithHistoryWindow sets how many recent turns are sent to the model.
func WithHistoryWindow(n int) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.window = n
	}
}

func WithTemperature(t float32) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.temperature = t
	}
}

// WithTimeout bounds each model call. Zero disables the bound.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(o *dialogueGeneratorOptions) {
		o.timeout = d
	}
}

type ModelDialogueGenerator struct {
	Lang         string
	systemPrompt string
	chatModel    model.BaseChatModel
	trimmer      Trimmer
	temperature  float32
	timeout      time.Duration
}

func NewModelDialogueGenerator(chatModel model.BaseChatModel, opts ...GeneratorOption) *ModelDialogueGenerator {
	options := dialogueGeneratorOptions{
		lang:                 "English",
		systemPromptTemplate: DefaultDialogueSystemPromptTemplate,
		window:               6,
		temperature:          0.3,
		timeout:              30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.lang == "" {
		options.lang = "English"
	}
	systemPrompt := options.systemPrompt
	if systemPrompt == "" {
		tpl := options.systemPromptTemplate
		if tpl == "" {
			tpl = DefaultDialogueSystemPromptTemplate
		}
		if strings.Contains(tpl, "%s") {
			systemPrompt = fmt.Sprintf(tpl, options.lang)
		} else {
			systemPrompt = tpl
		}
	}
	return &ModelDialogueGenerator{
		Lang:         options.lang,
		systemPrompt: systemPrompt,
		chatModel:    chatModel,
		trimmer:      KeepSystemLastNTrimmer{N: options.window},
		temperature:  options.temperature,
		timeout:      options.timeout,
	}
}

func (g *ModelDialogueGenerator) GenerateDialogue(ctx context.Context, req *Request) (string, error) {
	if !req.needsModel() {
		return AllCollectedMessage, nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	response, err := g.chatModel.Generate(ctx, g.buildDialoguePrompt(req), model.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	content := strings.TrimSpace(response.Content)
	if content == "" {
		return "", errors.New("LLM returned an empty reply")
	}
	return content, nil
}

func (g *ModelDialogueGenerator) buildDialoguePrompt(req *Request) []*schema.Message {
	messages := []*schema.Message{
		schema.SystemMessage(g.systemPrompt),
		schema.SystemMessage(types.FormatStatus(req.Fields)),
	}
	messages = append(messages, ToMessages(req.History)...)
	return g.trimmer.Trim(messages)
}
