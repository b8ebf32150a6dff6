package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/membot/pkg/log"
)

type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY,required,notEmpty"`
	Model  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

func NewOpenAIConfig(ctx context.Context) *OpenAIConfig {
	c := &OpenAIConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse OpenAI config")
	}
	return c
}

type OpenRouterConfig struct {
	APIKey string `env:"OPENROUTER_API_KEY,required,notEmpty"`
	Model  string `env:"OPENROUTER_MODEL,required,notEmpty" envDefault:"google/gemma-3-27b-it:free"`
}

func NewOpenRouterConfig(ctx context.Context) *OpenRouterConfig {
	c := &OpenRouterConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse OpenRouter config")
	}
	return c
}

type CustomLLMConfig struct {
	BaseURL string `env:"CUSTOM_LLM_BASE_URL,required,notEmpty"`
	APIKey  string `env:"CUSTOM_LLM_API_KEY"`
	Model   string `env:"CUSTOM_LLM_MODEL,required,notEmpty"`
}

func NewCustomLLMConfig(ctx context.Context) *CustomLLMConfig {
	c := &CustomLLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Custom LLM config")
	}
	return c
}

type MockConfig struct {
	Response string `env:"MOCK_LLM_RESPONSE" envDefault:"This is a mock response."`
}

func NewMockConfig(ctx context.Context) *MockConfig {
	c := &MockConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Mock config")
	}
	return c
}
