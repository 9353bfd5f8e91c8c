package provider

import (
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/claude"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/deepseek"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/gemini"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/ollama"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/openai"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/qwen"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
)

func NewInTreeRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(openai.Name, func() spi.ProviderPlugin { return openai.New() })
	r.MustRegister(claude.Name, func() spi.ProviderPlugin { return claude.New() })
	r.MustRegister(gemini.Name, func() spi.ProviderPlugin { return gemini.New() })
	r.MustRegister(deepseek.Name, func() spi.ProviderPlugin { return deepseek.New() })
	r.MustRegister(qwen.Name, func() spi.ProviderPlugin { return qwen.New() })
	r.MustRegister(ollama.Name, func() spi.ProviderPlugin { return ollama.New() })
	return r
}
