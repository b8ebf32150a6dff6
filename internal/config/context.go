package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/membot/pkg/log"
)

type ContextConfig struct {
	MaxTokens        int     `env:"CONTEXT_MAX_TOKENS" envDefault:"8000"`
	TokenizerModel   string  `env:"CONTEXT_TOKENIZER_MODEL" envDefault:"gpt-4"`
	MemoryMaxResults int     `env:"MEMORY_MAX_RESULTS" envDefault:"3"`
	MemoryMinScore   float64 `env:"MEMORY_MIN_SCORE" envDefault:"-1000"`
}

func NewContextConfig(ctx context.Context) *ContextConfig {
	c := &ContextConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Context config")
	}
	return c
}
