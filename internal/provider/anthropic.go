package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// AnthropicConfig configures an AnthropicAdapter.
type AnthropicConfig struct {
	Name    string
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// UseBedrock routes calls through AWS Bedrock using the default AWS
	// credential chain instead of an API key.
	UseBedrock bool
	AWSRegion  string
	AWSProfile string
}

// AnthropicAdapter calls the Anthropic Messages API through the official SDK.
type AnthropicAdapter struct {
	name    string
	inner   anthropic.Client
	model   anthropic.Model
	timeout time.Duration
	usage   *Usage
}

// NewAnthropicAdapter creates an adapter. SDK retries are disabled; retries
// belong to the router's middleware chain.
func NewAnthropicAdapter(cfg AnthropicConfig) *AnthropicAdapter {
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaude3_5Haiku20241022
	}

	if cfg.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
		model = bedrockModel(model)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AnthropicAdapter{
		name:    cfg.Name,
		inner:   anthropic.NewClient(opts...),
		model:   model,
		timeout: timeout,
		usage:   NewUsage(),
	}
}

// bedrockModel converts Anthropic model IDs to Bedrock cross-region
// inference profiles (us.anthropic.{model}-v1:0).
func bedrockModel(model anthropic.Model) anthropic.Model {
	profiles := map[anthropic.Model]string{
		"claude-3-5-haiku-latest":               "us.anthropic.claude-3-5-haiku-20241022-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	}
	if p, ok := profiles[model]; ok {
		return anthropic.Model(p)
	}
	return model
}

// Name returns the provider name.
func (a *AnthropicAdapter) Name() string { return a.name }

// Model returns the model ID sent to the API.
func (a *AnthropicAdapter) Model() anthropic.Model { return a.model }

// Usage returns the adapter's token usage.
func (a *AnthropicAdapter) Usage() *Usage { return a.usage }

// Call sends req as a single-turn message.
func (a *AnthropicAdapter) Call(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	resp, err := a.inner.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &CallError{Provider: a.name, StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", callErr(a.name, err)
	}

	a.usage.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errEmptyResponse(a.name)
	}
	return sb.String(), nil
}
