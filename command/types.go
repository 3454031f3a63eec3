package command

import "context"

// Command is a terminal chat control command.
type Command string

const (
	Reset  Command = "reset"
	Status Command = "status"
	Quit   Command = "quit"
	None   Command = "none"
)

type Parser interface {
	ParseCommand(ctx context.Context, input string) (Command, error)
}
