package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tbxark/leadagent/sink"
)

var replayDryRun bool

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Resubmit leads whose save failed",
	Long: `Read the lead journal and resubmit every lead whose latest entry is
not "ok" through the configured backends. Record stores ignore ids they
already hold, so replaying is safe to repeat.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "list pending leads without resubmitting")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Sink.JournalPath == "" {
		return errors.New("no journal configured (sink.journal_path / JOURNAL_PATH)")
	}
	out := cmd.OutOrStdout()

	if replayDryRun {
		pending, err := sink.Pending(cfg.Sink.JournalPath)
		if err != nil {
			return err
		}
		for _, lead := range pending {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", lead.ID, lead.CapturedAt.Format(sink.SheetTimeLayout), lead.Name, lead.Phone)
		}
		fmt.Fprintf(out, "%d pending\n", len(pending))
		return nil
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.journal == nil {
		return errors.New("no lead backends configured")
	}
	res, err := a.journal.Replay(cmd.Context())
	if err != nil {
		return err
	}
	slog.Info("Replay finished", "replayed", res.Replayed, "failed", res.Failed)
	fmt.Fprintf(out, "replayed %d, failed %d\n", res.Replayed, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d leads still pending", res.Failed)
	}
	return nil
}
