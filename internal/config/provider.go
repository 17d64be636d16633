package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/engram/pkg/log"
)

// ProviderConfig holds credentials and model names for the text-generation
// and embedding backends. Only the selected provider's fields are required
// at runtime; parse is lenient so a single .env can carry several setups.
type ProviderConfig struct {
	Model string `env:"LLM_MODEL" envDefault:"google/gemma-3-27b-it:free"`

	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`

	OllamaBaseURL string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey  string `env:"OLLAMA_API_KEY"`

	CustomBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`

	// Embeddings go through the same OpenAI-compatible surface.
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
}

func NewProviderConfig(ctx context.Context) *ProviderConfig {
	c := &ProviderConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Provider config")
	}
	return c
}
