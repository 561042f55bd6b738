package provider

import (
	"context"
	"strings"
	"time"
)

// OpenAIAdapter calls an OpenAI-compatible /chat/completions endpoint. It
// serves OpenRouter, Mistral and Groq.
type OpenAIAdapter struct {
	httpAdapter
}

// NewOpenAIAdapter creates an adapter for an OpenAI-compatible API at baseURL.
func NewOpenAIAdapter(name, baseURL, model, apiKey string, headers map[string]string, timeout time.Duration) *OpenAIAdapter {
	return &OpenAIAdapter{httpAdapter: newHTTPAdapter(name, baseURL, model, apiKey, headers, timeout)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call sends req as a chat completion.
func (a *OpenAIAdapter) Call(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var out chatResponse
	if err := a.postJSON(ctx, a.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	}, body, &out); err != nil {
		return "", err
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errEmptyResponse(a.name)
	}
	return out.Choices[0].Message.Content, nil
}
