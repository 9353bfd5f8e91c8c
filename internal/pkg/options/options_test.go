package options

import (
	"testing"

	"github.com/kiosk404/ragrelay/internal/pkg/server"
	"github.com/stretchr/testify/require"
)

func TestServerRunOptionsApplyTo(t *testing.T) {
	o := NewServerRunOptions()
	o.BindAddress = "127.0.0.1"
	o.BindPort = 9000

	cfg := server.NewConfig()
	require.NoError(t, o.ApplyTo(cfg))
	require.Equal(t, "127.0.0.1:9000", cfg.Address)
	require.Empty(t, o.Validate())

	o.Mode = "loud"
	require.Len(t, o.Validate(), 1)
}

func TestModelOptionsValidate(t *testing.T) {
	o := NewModelOptions()
	require.Empty(t, o.Validate())

	o.Providers["local"] = &ProviderConfig{API: "ollama", Models: []ModelDefinition{{ID: "qwen3"}}}
	o.DefaultProvider = "local"
	require.Empty(t, o.Validate())

	o.Providers["odd"] = &ProviderConfig{API: "telepathy"}
	o.DefaultProvider = "missing"
	o.Fallbacks = []string{"local/qwen3", "nomodel"}
	require.Len(t, o.Validate(), 3)
}
