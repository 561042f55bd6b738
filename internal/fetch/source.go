// Package fetch runs latency tiers of external data sources concurrently.
// Every source call is time-boxed on its own and a failing source never
// aborts its tier.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/misterprompt/brain-ai/internal/version"
	"github.com/misterprompt/brain-ai/pkg/models"
)

// MaxBodyBytes caps how much of a source response is read.
const MaxBodyBytes = 1 << 20

// ErrSourceFetchFailed is matched by every *FetchError.
var ErrSourceFetchFailed = errors.New("source fetch failed")

// FetchError describes one failed source call.
type FetchError struct {
	SourceID   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("source %s: status %d", e.SourceID, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("source %s: %v", e.SourceID, e.Err)
	default:
		return fmt.Sprintf("source %s: fetch failed", e.SourceID)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes every FetchError match ErrSourceFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrSourceFetchFailed
}

// Source is one external data source.
type Source interface {
	ID() string
	Fetch(ctx context.Context, query string) ([]byte, error)
}

// Spec describes a source in the catalog.
type Spec struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Tier     models.Tier       `yaml:"tier"`
	Category models.Category   `yaml:"category"`
	URL      string            `yaml:"url"`
	Method   string            `yaml:"method"`
	Headers  map[string]string `yaml:"headers"`
	// CacheTTL enables response caching for this source when positive.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DisplayName returns Name, or ID when Name is empty.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Validate checks that the spec can be turned into a source.
func (s Spec) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if !s.Tier.Valid() {
		return fmt.Errorf("source %s: invalid tier %q", s.ID, s.Tier)
	}
	if !s.Category.Valid() {
		return fmt.Errorf("source %s: invalid category %q", s.ID, s.Category)
	}
	if s.URL == "" {
		return fmt.Errorf("source %s: url is required", s.ID)
	}
	switch strings.ToUpper(s.Method) {
	case "", http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("source %s: unsupported method %q", s.ID, s.Method)
	}
	return nil
}

// HTTPSource fetches a URL built from a template with a {query} placeholder.
type HTTPSource struct {
	spec   Spec
	client *http.Client
}

// NewHTTPSource creates a source for spec. A nil client uses http.DefaultClient.
func NewHTTPSource(spec Spec, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{spec: spec, client: client}
}

// ID returns the source ID.
func (s *HTTPSource) ID() string { return s.spec.ID }

// URL returns the request URL for query.
func (s *HTTPSource) URL(query string) string {
	return strings.ReplaceAll(s.spec.URL, "{query}", url.QueryEscape(query))
}

// Fetch performs the request and returns at most MaxBodyBytes of the body.
func (s *HTTPSource) Fetch(ctx context.Context, query string) ([]byte, error) {
	method := strings.ToUpper(s.spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, s.URL(query), nil)
	if err != nil {
		return nil, &FetchError{SourceID: s.spec.ID, Err: err}
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range s.spec.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{SourceID: s.spec.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes))
		return nil, &FetchError{SourceID: s.spec.ID, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, &FetchError{SourceID: s.spec.ID, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// FuncSource adapts a function to Source.
type FuncSource struct {
	id string
	fn func(ctx context.Context, query string) ([]byte, error)
}

// NewFuncSource creates a Source named id backed by fn.
func NewFuncSource(id string, fn func(ctx context.Context, query string) ([]byte, error)) *FuncSource {
	return &FuncSource{id: id, fn: fn}
}

// ID returns the source ID.
func (s *FuncSource) ID() string { return s.id }

// Fetch calls the wrapped function.
func (s *FuncSource) Fetch(ctx context.Context, query string) ([]byte, error) {
	return s.fn(ctx, query)
}
