package dialogue

import (
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/leadagent/types"
)

type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps all system messages and the last N non-system messages.
// When N <= 0, it keeps only system messages.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	nonSystem := 0
	for _, m := range history {
		if m != nil && m.Role != schema.System {
			nonSystem++
		}
	}
	skip := nonSystem - max(t.N, 0)

	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role != schema.System && skip > 0 {
			skip--
			continue
		}
		out = append(out, m)
	}
	return out
}

// ToMessages converts conversation turns into chat messages.
func ToMessages(history []types.Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case types.RoleUser:
			out = append(out, schema.UserMessage(turn.Text))
		case types.RoleAssistant:
			out = append(out, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return out
}
