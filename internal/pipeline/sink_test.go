package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWriterSink_Formats(t *testing.T) {
	ev := Event{RunID: "run-1", Type: EventComplete, Sequence: 3, Data: CompleteData{TotalSources: 2}}

	tests := []struct {
		format Format
		prefix string
		suffix string
	}{
		{FormatNDJSON, "{", "}\n"},
		{FormatSSE, "data: {", "}\n\n"},
		{"", "{", "}\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriterSink(&buf, tt.format).Emit(context.Background(), ev); err != nil {
				t.Fatalf("Emit() error = %v", err)
			}
			out := buf.String()
			if !strings.HasPrefix(out, tt.prefix) || !strings.HasSuffix(out, tt.suffix) {
				t.Fatalf("output = %q, want prefix %q and suffix %q", out, tt.prefix, tt.suffix)
			}

			payload := strings.TrimPrefix(strings.TrimSpace(out), "data: ")
			var decoded map[string]any
			if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
				t.Fatalf("decode %q: %v", payload, err)
			}
			if decoded["type"] != "complete" || decoded["run_id"] != "run-1" {
				t.Errorf("decoded = %v", decoded)
			}
		})
	}
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestWriterSink_Flushes(t *testing.T) {
	w := &flushRecorder{}
	sink := NewWriterSink(w, FormatSSE)
	for i := 0; i < 2; i++ {
		if err := sink.Emit(context.Background(), Event{Type: EventIntent}); err != nil {
			t.Fatalf("Emit() error = %v", err)
		}
	}
	if w.flushes != 2 {
		t.Errorf("flushes = %d, want 2", w.flushes)
	}
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(1)

	if err := sink.Emit(context.Background(), Event{Type: EventIntent, Sequence: 1}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	// The buffer is full, so the next emit blocks until ctx ends.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sink.Emit(ctx, Event{Type: EventFastResults, Sequence: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Emit() on full buffer error = %v, want deadline exceeded", err)
	}

	ev := <-sink.Events()
	if ev.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", ev.Sequence)
	}

	sink.Close()
	sink.Close()
	if _, ok := <-sink.Events(); ok {
		t.Error("Events() still open after Close")
	}
}

func TestChannelSink_WithRun(t *testing.T) {
	sink := NewChannelSink(4)
	done := make(chan error, 1)
	go func() {
		done <- New(nilRegistry(), nil).Run(context.Background(), "anything", sink)
		sink.Close()
	}()

	var types []EventType
	for ev := range sink.Events() {
		types = append(types, ev.Type)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(types) == 0 || types[len(types)-1] != EventComplete {
		t.Errorf("events = %v, want a stream ending in complete", types)
	}
}
