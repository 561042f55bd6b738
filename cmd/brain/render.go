package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/misterprompt/brain-ai/internal/pipeline"
	"github.com/misterprompt/brain-ai/internal/router"
)

var (
	dim     = color.New(color.Faint).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

// textSink renders pipeline events for a terminal.
type textSink struct {
	w io.Writer
}

func (s textSink) Emit(_ context.Context, ev pipeline.Event) error {
	switch data := ev.Data.(type) {
	case pipeline.IntentData:
		cats := make([]string, len(data.Categories))
		for i, c := range data.Categories {
			cats[i] = string(c)
		}
		fmt.Fprintf(s.w, "%s %s %s %s\n", cyan("→"), bold(data.Domain), dim("("+strings.Join(cats, ", ")+")"), dim("via "+data.Source))

	case pipeline.TierData:
		if data.Skipped {
			fmt.Fprintf(s.w, "%s %s skipped %s\n", dim("–"), data.Tier, dim("("+data.Reason+")"))
			return nil
		}
		mark := green("✓")
		if data.Count == 0 {
			mark = yellow("!")
		}
		fmt.Fprintf(s.w, "%s %s: %d results", mark, data.Tier, data.Count)
		if len(data.Providers) > 0 {
			fmt.Fprintf(s.w, " from %s", strings.Join(data.Providers, ", "))
		}
		if data.Failed > 0 {
			fmt.Fprintf(s.w, " %s", yellow(fmt.Sprintf("(%d failed)", data.Failed)))
		}
		fmt.Fprintf(s.w, " %s\n", dim(formatMillis(data.ElapsedMs)))

	case pipeline.SynthesisData:
		if data.Skipped {
			return nil
		}
		fmt.Fprintf(s.w, "\n%s\n%s\n\n", magenta(string(data.Phase)), data.Text)

	case pipeline.RerankData:
		if data.Skipped {
			fmt.Fprintf(s.w, "%s rerank skipped %s\n", dim("–"), dim("("+data.Reason+")"))
			return nil
		}
		fmt.Fprintf(s.w, "%s top results\n", cyan("→"))
		for i, r := range data.TopResults {
			if i == 5 {
				break
			}
			fmt.Fprintf(s.w, "  %3d  %s\n", r.Score, r.Title)
		}

	case pipeline.FinalSynthesisData:
		fmt.Fprintf(s.w, "\n%s\n%s\n", bold("Answer"), data.Text)
		fmt.Fprintf(s.w, "%s\n", dim(fmt.Sprintf("%d of %d sources, confidence %.2f", data.SourcesUsed, data.TotalSources, data.Confidence)))
		for _, w := range data.Warnings {
			fmt.Fprintf(s.w, "%s %s\n", yellow("!"), w)
		}

	case pipeline.CompleteData:
		fmt.Fprintf(s.w, "\n%s %d sources in %s\n", green("done"), data.TotalSources, formatMillis(data.TotalTimeMs))

	case pipeline.ErrorData:
		fmt.Fprintf(s.w, "%s %s\n", red("error"), data.Message)
	}
	return nil
}

// newSink returns the sink for an output format name.
func newSink(format string, w io.Writer) (pipeline.Sink, error) {
	switch format {
	case "", "text":
		return textSink{w: w}, nil
	case string(pipeline.FormatNDJSON), "json":
		return pipeline.NewWriterSink(w, pipeline.FormatNDJSON), nil
	case string(pipeline.FormatSSE):
		return pipeline.NewWriterSink(w, pipeline.FormatSSE), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, ndjson or sse)", format)
	}
}

// printRouteFailure lists what happened to each provider.
func printRouteFailure(w io.Writer, err error) {
	var failed *router.AllProvidersFailedError
	if !errors.As(err, &failed) || len(failed.Attempts) == 0 {
		fmt.Fprintf(w, "%s %v\n", red("error"), err)
		return
	}
	fmt.Fprintf(w, "%s all providers failed\n", red("error"))
	for _, at := range failed.Attempts {
		mark := red("✗")
		if at.Skipped {
			mark = dim("–")
		}
		fmt.Fprintf(w, "  %s %s: %v\n", mark, at.Provider, at.Err)
	}
}

func formatMillis(ms int64) string {
	return formatDuration(time.Duration(ms) * time.Millisecond)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	if m := int(d.Minutes()) % 60; m > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}
