package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/llmtest"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/pkg/errno"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/helper"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
	"github.com/stretchr/testify/require"
)

// scriptedPlugin serves one scripted model per model id.
type scriptedPlugin struct {
	helper.BasePlugin
	models map[string]*llmtest.ScriptedModel
	params []*entity.LLMParams
}

func (p *scriptedPlugin) BuildChatModel(_ context.Context, instance *entity.ModelInstance, params *entity.LLMParams) (model.ToolCallingChatModel, error) {
	p.params = append(p.params, params)
	m, ok := p.models[instance.Ref.ModelID]
	if !ok {
		return nil, errors.New("no script for " + instance.Ref.ModelID)
	}
	return m, nil
}

func newTestModule(t *testing.T, opts *options.ModelOptions, models map[string]*llmtest.ScriptedModel) (*Module, *scriptedPlugin) {
	t.Helper()
	plugin := &scriptedPlugin{BasePlugin: helper.BasePlugin{PluginName: "scripted"}, models: models}
	oot := provider.NewRegistry()
	oot.MustRegister("scripted", func() spi.ProviderPlugin { return plugin })

	cfg := &Config{ModelOptions: opts, OutOfTreeRegistry: oot}
	m, err := cfg.Complete().New(context.Background())
	require.NoError(t, err)
	return m, plugin
}

func localOptions(models ...string) *options.ModelOptions {
	opts := options.NewModelOptions()
	defs := make([]options.ModelDefinition, 0, len(models))
	for _, id := range models {
		defs = append(defs, options.ModelDefinition{ID: id})
	}
	opts.Providers["local"] = &options.ProviderConfig{API: "scripted", Models: defs}
	return opts
}

func TestModuleWithoutModels(t *testing.T) {
	m, _ := newTestModule(t, options.NewModelOptions(), nil)
	require.False(t, m.Enabled())
	_, err := m.DefaultChatModel(context.Background())
	require.ErrorIs(t, err, errno.ErrNoModelConfigured)
	require.Equal(t, 7, m.Registry.Len())
}

func TestModuleDefaultModelAndCompleter(t *testing.T) {
	primary := llmtest.Text("  forty two  ")
	m, _ := newTestModule(t, localOptions("m1", "m2"), map[string]*llmtest.ScriptedModel{"m1": primary})
	require.True(t, m.Enabled())

	ref, err := m.Manager.DefaultRef()
	require.NoError(t, err)
	require.Equal(t, "local/m1", ref.String())
	require.Len(t, m.Manager.ListModels(), 2)

	c, err := m.Completer(context.Background())
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), "be brief", "what is six times seven?")
	require.NoError(t, err)
	require.Equal(t, "forty two", out)

	calls := primary.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, schema.System, calls[0][0].Role)
	require.Equal(t, "what is six times seven?", calls[0][1].Content)
}

func TestModuleCachesChatModels(t *testing.T) {
	m, plugin := newTestModule(t, localOptions("m1"), map[string]*llmtest.ScriptedModel{"m1": llmtest.Text()})
	ref := entity.ModelRef{ProviderID: "local", ModelID: "m1"}

	_, err := m.ChatModel(context.Background(), ref)
	require.NoError(t, err)
	_, err = m.ChatModel(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, plugin.params, 1)

	temp := float32(0)
	_, err = m.BuildChatModel(context.Background(), ref, &entity.LLMParams{Temperature: &temp})
	require.NoError(t, err)
	require.Len(t, plugin.params, 2)
	require.Equal(t, &temp, plugin.params[1].Temperature)

	_, err = m.ChatModel(context.Background(), entity.ModelRef{ProviderID: "local", ModelID: "nope"})
	require.ErrorIs(t, err, errno.ErrModelNotFound)
}

func TestModuleFallback(t *testing.T) {
	opts := localOptions("m1", "m2")
	opts.DefaultProvider = "local"
	opts.DefaultModel = "m1"
	opts.Fallbacks = []string{"local/m2"}

	primary := llmtest.Text().FailAt(0, errors.New("overloaded"))
	backup := llmtest.Text("from backup")
	m, _ := newTestModule(t, opts, map[string]*llmtest.ScriptedModel{"m1": primary, "m2": backup})

	cm, err := m.DefaultChatModel(context.Background())
	require.NoError(t, err)
	msg, err := cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, "from backup", msg.Content)
	require.Len(t, primary.Calls(), 1)

	// both fail: errors are joined
	_, err = cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("again")})
	require.ErrorIs(t, err, llmtest.ErrScriptExhausted)
	require.Contains(t, err.Error(), "local/m1")
	require.Contains(t, err.Error(), "local/m2")
}

func TestModuleRateLimit(t *testing.T) {
	opts := localOptions("m1")
	opts.RateLimit = 1000
	m, _ := newTestModule(t, opts, map[string]*llmtest.ScriptedModel{"m1": llmtest.Text("ok")})

	cm, err := m.DefaultChatModel(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cm.Generate(ctx, []*schema.Message{schema.UserMessage("hi")})
	require.ErrorIs(t, err, context.Canceled)

	bound, err := cm.WithTools([]*schema.ToolInfo{{Name: "sql-query"}})
	require.NoError(t, err)
	msg, err := bound.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, "ok", msg.Content)
}

func TestModuleConfigErrors(t *testing.T) {
	opts := options.NewModelOptions()
	opts.Providers["odd"] = &options.ProviderConfig{API: "telepathy", Models: []options.ModelDefinition{{ID: "x"}}}
	_, err := (&Config{ModelOptions: opts}).Complete().New(context.Background())
	require.ErrorIs(t, err, errno.ErrUnknownAPI)

	opts = localOptions("m1")
	opts.DefaultProvider = "local"
	opts.DefaultModel = "m9"
	plugin := &scriptedPlugin{BasePlugin: helper.BasePlugin{PluginName: "scripted"}}
	oot := provider.NewRegistry()
	oot.MustRegister("scripted", func() spi.ProviderPlugin { return plugin })
	_, err = (&Config{ModelOptions: opts, OutOfTreeRegistry: oot}).Complete().New(context.Background())
	require.ErrorIs(t, err, errno.ErrModelNotFound)
}

func TestModuleProviderDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	opts := options.NewModelOptions()
	opts.Providers["openai"] = &options.ProviderConfig{}

	m, err := (&Config{ModelOptions: opts}).Complete().New(context.Background())
	require.NoError(t, err)
	models := m.Manager.ListModels()
	require.NotEmpty(t, models)
	require.Equal(t, "openai", models[0].API)
	require.Equal(t, "https://api.openai.com/v1", models[0].BaseURL)
	require.Equal(t, "sk-test", models[0].APIKey)
}

func TestParseModelRef(t *testing.T) {
	ref, err := entity.ParseModelRef("ollama/library/qwen3:8b")
	require.NoError(t, err)
	require.Equal(t, entity.ModelRef{ProviderID: "ollama", ModelID: "library/qwen3:8b"}, ref)

	for _, bad := range []string{"", "openai", "/gpt-4o", "openai/"} {
		_, err := entity.ParseModelRef(bad)
		require.Error(t, err, bad)
	}
}
