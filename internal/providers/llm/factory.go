package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/membot/internal/config"
	"github.com/sandevgo/membot/internal/core"
	"github.com/sandevgo/membot/pkg/log"
)

// NewProvider creates the appropriate AIProvider based on configuration.
func NewProvider(ctx context.Context, provider string) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", provider).
		Msg("starting llm provider")

	switch provider {
	case "openai":
		cfg := config.NewOpenAIConfig(ctx)
		return NewOpenAI(cfg.APIKey, cfg.Model), nil
	case "openrouter":
		cfg := config.NewOpenRouterConfig(ctx)
		return NewOpenRouter(cfg.APIKey, cfg.Model), nil
	case "custom":
		cfg := config.NewCustomLLMConfig(ctx)
		return NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}), nil
	case "mock":
		cfg := config.NewMockConfig(ctx)
		return NewMock(cfg.Response), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
