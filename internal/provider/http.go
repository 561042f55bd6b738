package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/misterprompt/brain-ai/internal/version"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// httpAdapter holds what the JSON-over-HTTP adapters share.
type httpAdapter struct {
	name    string
	baseURL string
	model   string
	apiKey  string
	headers map[string]string
	timeout time.Duration
	client  *http.Client
}

func newHTTPAdapter(name, baseURL, model, apiKey string, headers map[string]string, timeout time.Duration) httpAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return httpAdapter{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		headers: headers,
		timeout: timeout,
		client:  &http.Client{},
	}
}

func (a *httpAdapter) Name() string { return a.name }

// postJSON sends body to url and decodes a 2xx response into out. Any other
// outcome is a *CallError.
func (a *httpAdapter) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return callErr(a.name, fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return callErr(a.name, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return a.do(req, out)
}

func (a *httpAdapter) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := a.client.Do(req)
	if err != nil {
		return callErr(a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &CallError{
			Provider:   a.name,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return callErr(a.name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errEmptyResponse(provider string) error {
	return callErr(provider, fmt.Errorf("empty response"))
}
