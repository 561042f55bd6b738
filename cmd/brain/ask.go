package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	askFormat  string
	askTimeout time.Duration
	askVerbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Research a query across data sources",
	Long: `Classify the query, fetch the matching data sources tier by tier and
stream a synthesis as results arrive.

Formats:
  text     Human-readable progress (default)
  ndjson   One JSON event per line
  sse      Server-sent event frames`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askFormat, "format", "f", "text", "Output format: text, ndjson or sse")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 0, "Abort the run after this long (0 for no limit)")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Show component logs")
}

func runAsk(cmd *cobra.Command, args []string) error {
	sink, err := newSink(askFormat, os.Stdout)
	if err != nil {
		return err
	}
	if !askVerbose {
		original := log.Writer()
		log.SetOutput(io.Discard)
		defer log.SetOutput(original)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, askTimeout)
		defer cancel()
	}

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	if err := a.pipeline.Run(ctx, query, sink); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("run stopped: %w", err)
		}
		return err
	}
	return nil
}
