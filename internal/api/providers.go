package api

import (
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/llm"
	"github.com/Rrens/support-widget/internal/llm/anthropic"
	"github.com/Rrens/support-widget/internal/llm/gemini"
	"github.com/Rrens/support-widget/internal/llm/openai"
)

// NewLLMRouter registers every provider that has credentials. DeepSeek and
// Ollama speak the OpenAI chat completions protocol.
func NewLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Str("default", cfg.DefaultProvider).Msg("Initializing LLM providers")

	if cfg.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	} else {
		log.Warn().Msg("Gemini API key is empty, skipping registration")
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.DeepSeek,
			openai.WithName("deepseek"),
			openai.WithModels("deepseek-chat", "deepseek-reasoner"),
		))
	}
	if cfg.Ollama.BaseURL != "" {
		router.RegisterProvider(openai.NewProvider(cfg.Ollama,
			openai.WithName("ollama"),
			openai.WithModels("llama3.1", "qwen2.5", "mistral"),
			openai.Keyless(),
		))
	}

	return router
}
