package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/catalogue-assistant/server/internal/agent/model"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

// Provider hands out chat models for a set of model parameters. Tools, when
// given, are bound to the returned model.
type Provider interface {
	ChatModel(ctx context.Context, params model.ModelParams, tools []*schema.ToolInfo) (einomodel.BaseChatModel, error)
}

// GeminiConfig holds the configuration for Gemini chat model creation
type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	DefaultModel   string
	ThinkingBudget int32
}

// GeminiProvider creates Gemini chat models sharing one genai client.
type GeminiProvider struct {
	client         *genai.Client
	defaultModel   string
	thinkingBudget int32
}

// NewGeminiProvider creates the shared Gemini client.
func NewGeminiProvider(ctx context.Context, config GeminiConfig) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:         client,
		defaultModel:   config.DefaultModel,
		thinkingBudget: config.ThinkingBudget,
	}, nil
}

// ChatModel builds a fresh Gemini chat model for params. A new instance is
// created per call so that tool binding never leaks between capabilities.
func (p *GeminiProvider) ChatModel(ctx context.Context, params model.ModelParams, tools []*schema.ToolInfo) (einomodel.BaseChatModel, error) {
	name := ResolveModelName(params, p.defaultModel)

	cfg := &gemini.Config{
		Client:      p.client,
		Model:       name,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}
	if p.thinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(p.thinkingBudget),
		}
	}

	cm, err := gemini.NewChatModel(ctx, cfg)
	if err != nil {
		logx.Error().Err(err).Str("model", name).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model %s: %w", name, err)
	}

	if len(tools) > 0 {
		if err := cm.BindTools(tools); err != nil {
			logx.Error().Err(err).Str("model", name).Msg("Failed to bind tools")
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
		logx.Debug().Str("model", name).Int("tool_count", len(tools)).Msg("Successfully bound tools to chat model")
	}

	return cm, nil
}

// ResolveModelName returns the configured model name or fallback when unset.
func ResolveModelName(params model.ModelParams, fallback string) string {
	if params.Model != "" {
		return params.Model
	}
	return fallback
}

var _ Provider = (*GeminiProvider)(nil)
