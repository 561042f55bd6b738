package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Sink receives a run's events in order. An error from Emit stops the run.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// ChannelSink delivers events over a buffered channel. Emit blocks until the
// event is accepted or ctx is done, so no event is ever dropped.
type ChannelSink struct {
	events chan Event
	once   sync.Once
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, bufferSize)}
}

// Emit sends ev to the channel.
func (s *ChannelSink) Emit(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns a read-only channel of events.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// Close closes the events channel. Call it after Run returns.
func (s *ChannelSink) Close() {
	s.once.Do(func() { close(s.events) })
}

// Format selects the WriterSink framing.
type Format string

const (
	// FormatNDJSON writes one JSON object per line.
	FormatNDJSON Format = "ndjson"
	// FormatSSE writes server-sent event frames.
	FormatSSE Format = "sse"
)

type flusher interface {
	Flush()
}

// WriterSink encodes events onto an io.Writer, flushing after each one
// when the writer supports it.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

// NewWriterSink creates a WriterSink.
func NewWriterSink(w io.Writer, format Format) *WriterSink {
	if format == "" {
		format = FormatNDJSON
	}
	return &WriterSink{w: w, format: format}
}

// Emit writes ev.
func (s *WriterSink) Emit(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case FormatSSE:
		_, err = fmt.Fprintf(s.w, "data: %s\n\n", payload)
	default:
		_, err = fmt.Fprintf(s.w, "%s\n", payload)
	}
	if err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	if f, ok := s.w.(flusher); ok {
		f.Flush()
	}
	return nil
}
