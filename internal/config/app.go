package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/membot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"MEMBOT_RUNTIME_PATH" envDefault:".membot"`
	// Allow selecting the provider
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openrouter"`

	// Transport Flags
	EnableCLI bool `env:"ENABLE_CLI" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetKnowledgePath() string {
	return filepath.Join(c.RuntimePath, "memory.db")
}

func (c AppConfig) GetSessionsPath() string {
	return filepath.Join(c.RuntimePath, "sessions.db")
}

func (c AppConfig) GetSystemPromptPath() string {
	return filepath.Join(c.RuntimePath, "SYSTEM.md")
}

func (c AppConfig) GetKnowledgeDirPath() string {
	return filepath.Join(c.RuntimePath, "knowledge")
}
