package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/engram/internal/config"
	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/log"
)

// NewProvider creates the appropriate AIProvider based on configuration.
func NewProvider(ctx context.Context, appCfg *config.AppConfig, cfg *config.ProviderConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", appCfg.LLMProvider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	switch appCfg.LLMProvider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model), nil
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model), nil
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaAPIKey, cfg.Model), nil
	case "custom":
		return NewCustomOpenAI(cfg.CustomBaseURL, cfg.CustomAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", appCfg.LLMProvider)
	}
}

// NewEmbedder builds the embedding provider. Embeddings ride the same
// OpenAI-compatible surface as chat, with the embedding model substituted.
func NewEmbedder(ctx context.Context, appCfg *config.AppConfig, cfg *config.ProviderConfig) (core.Embedder, error) {
	log.FromCtx(ctx).Info().
		Str("provider", appCfg.LLMProvider).
		Str("model", cfg.EmbeddingModel).
		Msg("starting embedding provider")

	switch appCfg.LLMProvider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingModel), nil
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.EmbeddingModel), nil
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaAPIKey, cfg.EmbeddingModel), nil
	case "custom":
		return NewCustomOpenAI(cfg.CustomBaseURL, cfg.CustomAPIKey, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", appCfg.LLMProvider)
	}
}
