package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/engram/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"ENGRAM_RUNTIME_PATH" envDefault:".engram"`
	// Allow selecting the provider
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openrouter"`

	// Consolidation triggers
	CronSchedule string `env:"CONSOLIDATION_CRON" envDefault:"@every 1h"`

	// Transcript budget for the bulk extractor, in tokens
	TranscriptTokenBudget int `env:"TRANSCRIPT_TOKEN_BUDGET" envDefault:"3000"`
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

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "engram.db")
}
