package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/pkg"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/pkg/errno"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/helper"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"golang.org/x/time/rate"
)

var _ ModelManager = (*modelManagerImpl)(nil)

type modelManagerImpl struct {
	opts     *options.ModelOptions
	registry *provider.Registry
	limiter  *rate.Limiter

	mu         sync.RWMutex
	models     map[string]*entity.ModelInstance
	order      []entity.ModelRef
	defaultRef entity.ModelRef

	// Key: ModelRef.String().
	chatModelCache sync.Map
	// Key: API name.
	pluginCache sync.Map
}

// NewModelManager creates a ModelManager over the plugins of registry. All
// models it builds share one rate limiter when opts.RateLimit is set.
func NewModelManager(opts *options.ModelOptions, registry *provider.Registry) ModelManager {
	m := &modelManagerImpl{
		opts:     opts,
		registry: registry,
		models:   make(map[string]*entity.ModelInstance),
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return m
}

func (m *modelManagerImpl) Initialize(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.opts.Providers))
	for id := range m.opts.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := m.opts.Providers[id]
		api := cfg.API
		if api == "" {
			api = id
		}
		plugin, err := m.plugin(api)
		if err != nil {
			return fmt.Errorf("provider %q: %w", id, err)
		}
		cfg = withDefaults(cfg, plugin.DefaultConfig())
		for _, instance := range helper.BuildModels(id, cfg) {
			key := instance.Ref.String()
			if _, dup := m.models[key]; dup {
				continue
			}
			m.models[key] = instance
			m.order = append(m.order, instance.Ref)
		}
		logger.InfoX(pkg.ModuleName, "[LLM] provider %s (api=%s) loaded with %d models", id, api, len(cfg.Models))
	}

	switch {
	case m.opts.DefaultProvider != "":
		ref := entity.ModelRef{ProviderID: m.opts.DefaultProvider, ModelID: m.opts.DefaultModel}
		if ref.ModelID == "" {
			for _, r := range m.order {
				if r.ProviderID == ref.ProviderID {
					ref.ModelID = r.ModelID
					break
				}
			}
		}
		if _, ok := m.models[ref.String()]; !ok {
			return fmt.Errorf("default model %s: %w", ref, errno.ErrModelNotFound)
		}
		m.defaultRef = ref
	case len(m.order) > 0:
		m.defaultRef = m.order[0]
	}
	if !m.defaultRef.IsZero() {
		logger.InfoX(pkg.ModuleName, "[LLM] default model is %s", m.defaultRef)
	}
	return nil
}

// withDefaults fills the blanks of cfg from the plugin defaults without
// touching the caller's config.
func withDefaults(cfg, def *options.ProviderConfig) *options.ProviderConfig {
	out := *cfg
	if out.BaseURL == "" {
		out.BaseURL = def.BaseURL
	}
	if out.APIKey == "" {
		out.APIKey = def.APIKey
	}
	if len(out.Models) == 0 {
		out.Models = def.Models
	}
	return &out
}

func (m *modelManagerImpl) plugin(api string) (spi.ProviderPlugin, error) {
	if cached, ok := m.pluginCache.Load(api); ok {
		return cached.(spi.ProviderPlugin), nil
	}
	factory, err := m.registry.Get(api)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errno.ErrUnknownAPI, api)
	}
	actual, _ := m.pluginCache.LoadOrStore(api, factory())
	return actual.(spi.ProviderPlugin), nil
}

func (m *modelManagerImpl) ListModels() []*entity.ModelInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entity.ModelInstance, 0, len(m.order))
	for _, ref := range m.order {
		out = append(out, m.models[ref.String()])
	}
	return out
}

func (m *modelManagerImpl) GetModel(ref entity.ModelRef) (*entity.ModelInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	instance, ok := m.models[ref.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrModelNotFound, ref)
	}
	return instance, nil
}

func (m *modelManagerImpl) DefaultRef() (entity.ModelRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.defaultRef.IsZero() {
		return entity.ModelRef{}, errno.ErrNoModelConfigured
	}
	return m.defaultRef, nil
}

func (m *modelManagerImpl) GetChatModel(ctx context.Context, ref entity.ModelRef) (einoModel.ToolCallingChatModel, error) {
	key := ref.String()
	if cached, ok := m.chatModelCache.Load(key); ok {
		return cached.(einoModel.ToolCallingChatModel), nil
	}
	cm, err := m.BuildChatModel(ctx, ref, nil)
	if err != nil {
		return nil, err
	}
	actual, _ := m.chatModelCache.LoadOrStore(key, cm)
	return actual.(einoModel.ToolCallingChatModel), nil
}

func (m *modelManagerImpl) BuildChatModel(ctx context.Context, ref entity.ModelRef, params *entity.LLMParams) (einoModel.ToolCallingChatModel, error) {
	instance, err := m.GetModel(ref)
	if err != nil {
		return nil, err
	}
	plugin, err := m.plugin(instance.API)
	if err != nil {
		return nil, err
	}
	cm, err := plugin.BuildChatModel(ctx, instance, params)
	if err != nil {
		return nil, fmt.Errorf("build chat model for %s: %w", ref, err)
	}
	if m.limiter != nil {
		cm = NewRateLimitedModel(cm, m.limiter)
	}
	return cm, nil
}
