package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"
	"github.com/tbxark/leadagent/agent"
	"github.com/tbxark/leadagent/command"
	"github.com/tbxark/leadagent/types"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Long: `Start a terminal conversation with the lead assistant.

Commands:
  /status - show the collected fields
  /reset  - start over
  /quit   - exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "terminal", "session id")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return chatLoop(ctx, a.service, chatSession, cmd.InOrStdin(), cmd.OutOrStdout())
}

func chatLoop(ctx context.Context, service *agent.Service, sessionID string, in io.Reader, out io.Writer) error {
	leadAgent := agent.NewAgent(
		"LeadAssistant",
		"An agent that collects real-estate leads through conversation",
		service,
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: leadAgent})
	chatCtx := agent.WithStateKey(ctx, sessionID)

	parser := command.NewLocalCommandParser()
	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "Hi! I can help you find a property. What are you looking for?")
	for {
		fmt.Fprint(out, "You: ")
		input, rErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if rErr != nil && input == "" {
			fmt.Fprintln(out)
			return nil
		}
		if input == "" {
			continue
		}
		cmd, err := parser.ParseCommand(ctx, input)
		if err != nil {
			return err
		}
		switch cmd {
		case command.Quit:
			return nil
		case command.Reset:
			if err := service.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Session cleared.")
			continue
		case command.Status:
			state, err := service.State(ctx, sessionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\nPhase: %s\n", types.FormatStatus(state.Fields), state.Phase)
			continue
		}

		iter := runner.Run(chatCtx, []adk.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			fmt.Fprintf(out, "\nAssistant: %v\n======\n", msg.Content)
		}
		if rErr != nil {
			return nil
		}
	}
}
