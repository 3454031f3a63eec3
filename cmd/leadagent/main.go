package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "leadagent",
	Short: "Conversational lead capture for real estate",
	Long: `leadagent chats with prospective clients, collects property type,
budget, location, name, email and phone, and stores the completed lead.

Available subcommands:
  serve  - Run the HTTP API
  chat   - Chat in the terminal
  replay - Resubmit leads whose save failed`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a JSON config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
