package provider

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// OllamaAdapter calls a local Ollama server's /api/generate endpoint.
type OllamaAdapter struct {
	httpAdapter
}

// NewOllamaAdapter creates an Ollama adapter for the server at baseURL.
func NewOllamaAdapter(name, baseURL, model string, timeout time.Duration) *OllamaAdapter {
	return &OllamaAdapter{httpAdapter: newHTTPAdapter(name, baseURL, model, "", nil, timeout)}
}

type ollamaOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Call sends req to /api/generate without streaming.
func (a *OllamaAdapter) Call(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body := ollamaRequest{
		Model:  a.model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}

	var out ollamaResponse
	if err := a.postJSON(ctx, a.baseURL+"/api/generate", nil, body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", errEmptyResponse(a.name)
	}
	return out.Response, nil
}

// Probe checks that the server answers /api/tags.
func (a *OllamaAdapter) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return callErr(a.name, err)
	}
	return a.do(req, nil)
}
