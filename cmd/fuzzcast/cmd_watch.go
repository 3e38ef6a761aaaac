package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soltixdb/fuzzcast/internal/config"
	"github.com/soltixdb/fuzzcast/internal/models"
	"github.com/soltixdb/fuzzcast/internal/queue"
)

var watchModel string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow stage events published by running training jobs",
	Long: `Subscribe to the configured queue subject and print one line per
stage event. Requires queue.enabled.

Examples:
  fuzzcast watch --config fuzzcast.yaml
  fuzzcast watch --model <id>`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchModel, "model", "", "Only print events of this model")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Queue.Enabled {
		return fmt.Errorf("queue is disabled; set queue.enabled to watch stage events")
	}

	q, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		return fmt.Errorf("failed to connect to queue: %w", err)
	}
	defer func() { _ = q.Close() }()

	w := cmd.OutOrStdout()
	if err := q.Subscribe(cfg.Queue.Subject, stageEventPrinter(w, watchModel)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cfg.Queue.Subject, err)
	}
	fmt.Fprintf(w, "watching %s on %s\n", cfg.Queue.Subject, cfg.Queue.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return q.Unsubscribe(cfg.Queue.Subject)
}

// stageEventPrinter decodes stage events and writes them as single lines.
// Malformed payloads are acknowledged and skipped.
func stageEventPrinter(w io.Writer, model string) queue.MessageHandler {
	return func(data []byte) error {
		var ev models.StageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			fmt.Fprintf(w, "skipping malformed event: %v\n", err)
			return nil
		}
		if model != "" && ev.ModelID != model {
			return nil
		}

		line := fmt.Sprintf("%s %s %-9s %-9s", ev.Timestamp, ev.ModelID, ev.Stage, ev.Status)
		if ev.BestFitness != nil {
			line += fmt.Sprintf(" fitness=%.6f generations=%d rules=%d", *ev.BestFitness, ev.Generations, ev.Rules)
		}
		if ev.Error != "" {
			line += " error=" + ev.Error
		}
		fmt.Fprintln(w, line)
		return nil
	}
}
