package main

import (
	"bufio"
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

	"github.com/misterprompt/brain-ai/internal/cache"
	"github.com/misterprompt/brain-ai/internal/router"
)

// sweepInterval is how often expired store rows are deleted in the shell.
const sweepInterval = 10 * time.Minute

var (
	shellWatch   bool
	shellVerbose bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Answer queries read from stdin",
	Long: `Read one query per line and research each in turn.

Lines starting with a slash are commands:
  /route <prompt>   Send the prompt straight to the router
  /status           Show provider status
  /quit             Exit

With --watch (or catalog.watch in config), edits to the source catalog are
picked up without restarting.`,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().BoolVarP(&shellWatch, "watch", "w", false, "Reload the source catalog when it changes")
	shellCmd.Flags().BoolVarP(&shellVerbose, "verbose", "v", false, "Show component logs")
}

func runShell(cmd *cobra.Command, args []string) error {
	if !shellVerbose {
		original := log.Writer()
		log.SetOutput(io.Discard)
		defer log.SetOutput(original)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if shellWatch || a.cfg.Catalog.Watch {
		go func() {
			if err := a.watchCatalog(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[shell] catalog watch stopped: %v", err)
			}
		}()
	}
	if a.db != nil {
		go sweepLoop(ctx, a)
	}

	// Ctrl-C cancels the running query; a second one at the prompt exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	sink := textSink{w: os.Stdout}
	for {
		fmt.Print(cyan("brain> "))

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				fmt.Println()
				return nil
			}
			line = strings.TrimSpace(l)
		case <-sigCh:
			fmt.Println()
			return nil
		}

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/status":
			fmt.Println(renderStatus(a.router.Status(ctx)))
			continue
		case strings.HasPrefix(line, "/route "):
			runCtx, stop := interruptible(ctx, sigCh)
			shellRoute(runCtx, a, strings.TrimPrefix(line, "/route "))
			stop()
			continue
		case strings.HasPrefix(line, "/"):
			fmt.Printf("%s unknown command %s\n", yellow("!"), line)
			continue
		}

		runCtx, stop := interruptible(ctx, sigCh)
		if err := a.pipeline.Run(runCtx, line, sink); err != nil {
			fmt.Printf("%s %v\n", red("error"), err)
		}
		stop()
	}
}

// interruptible derives a context cancelled by the next signal on sigCh.
func interruptible(parent context.Context, sigCh <-chan os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-done:
		}
	}()
	return ctx, func() {
		close(done)
		cancel()
	}
}

func shellRoute(ctx context.Context, a *app, prompt string) {
	res, err := a.router.Route(ctx, router.Request{
		Prompt:         prompt,
		MaxTokens:      1024,
		CacheNamespace: cache.NamespaceAI,
	})
	if err != nil {
		printRouteFailure(os.Stdout, err)
		return
	}
	fmt.Printf("%s\n%s\n", res.Response, dim(res.Provider+" · "+formatMillis(res.ElapsedMs)))
}

func sweepLoop(ctx context.Context, a *app) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.db.Sweep(ctx); err != nil {
				log.Printf("[shell] store sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("[shell] swept %d expired entries", n)
			}
		}
	}
}
