package provider

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// GeminiAdapter calls the Gemini generateContent endpoint.
type GeminiAdapter struct {
	httpAdapter
}

// NewGeminiAdapter creates a Gemini adapter.
func NewGeminiAdapter(name, baseURL, model, apiKey string, timeout time.Duration) *GeminiAdapter {
	return &GeminiAdapter{httpAdapter: newHTTPAdapter(name, baseURL, model, apiKey, nil, timeout)}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Call sends req to generateContent.
func (a *GeminiAdapter) Call(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	// The key travels in a header so transport errors quoting the URL never
	// carry it.
	endpoint := a.baseURL + "/models/" + url.PathEscape(a.model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": a.apiKey}

	var out geminiResponse
	if err := a.postJSON(ctx, endpoint, headers, body, &out); err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 {
		return "", errEmptyResponse(a.name)
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errEmptyResponse(a.name)
	}
	return sb.String(), nil
}
