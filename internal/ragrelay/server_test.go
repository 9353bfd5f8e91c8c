package ragrelay

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ragrelay/internal/ragrelay/config"
	"github.com/kiosk404/ragrelay/internal/ragrelay/options"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(o *options.Options)) *apiServer {
	t.Helper()
	dir := t.TempDir()

	opts := options.NewOptions()
	opts.GenericServerRunOptions.Mode = gin.TestMode
	opts.ToolsOptions.CatalogFile = filepath.Join(dir, "tools.yaml")
	opts.MCPOptions.ConfigFile = filepath.Join(dir, "mcp.json")
	opts.KnowledgeOptions.DBPath = filepath.Join(dir, "knowledge.db")
	if mutate != nil {
		mutate(opts)
	}

	cfg, err := config.CreateConfigFromOptions(opts)
	require.NoError(t, err)
	s, err := createAPIServer(cfg)
	require.NoError(t, err)
	t.Cleanup(s.closeModules)
	s.PrepareRun()
	return s
}

func listTools(t *testing.T, s *apiServer) map[string]bool {
	t.Helper()
	w := httptest.NewRecorder()
	s.genericAPIServer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tools", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []struct {
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	enabled := make(map[string]bool, len(body.Data))
	for _, d := range body.Data {
		enabled[d.Name] = d.Enabled
	}
	return enabled
}

func TestServerWithoutBackends(t *testing.T) {
	s := newTestServer(t, nil)
	require.Nil(t, s.knowledgeModule)
	require.False(t, s.databaseModule.Enabled())

	w := httptest.NewRecorder()
	s.genericAPIServer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	tools := listTools(t, s)
	require.Len(t, tools, 6)
	for name, on := range tools {
		require.False(t, on, name)
	}

	w = httptest.NewRecorder()
	s.genericAPIServer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestServerEnablesKnowledgeRetrieval(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "pricing.md"),
		[]byte("# Pricing\n\nThe basic plan costs 10 dollars a month.\n"), 0o644))

	s := newTestServer(t, func(o *options.Options) {
		o.KnowledgeOptions.DocsDir = docs
	})
	require.NotNil(t, s.knowledgeModule)

	tools := listTools(t, s)
	require.True(t, tools["knowledge-retrieval"])
	require.False(t, tools["knowledge-graph-query"])
	require.False(t, tools["sql-query"])
}

func TestServerRequiresToken(t *testing.T) {
	s := newTestServer(t, func(o *options.Options) {
		o.AuthOptions.Enabled = true
		o.AuthOptions.Token = "s3cret"
		o.AuthOptions.AllowLoopback = false
	})

	w := httptest.NewRecorder()
	s.genericAPIServer.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tools", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	s.genericAPIServer.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServerRejectsBadCatalog(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("tools: [unclosed"), 0o644))

	opts := options.NewOptions()
	opts.GenericServerRunOptions.Mode = gin.TestMode
	opts.ToolsOptions.CatalogFile = catalog
	opts.MCPOptions.ConfigFile = filepath.Join(dir, "mcp.json")

	cfg, err := config.CreateConfigFromOptions(opts)
	require.NoError(t, err)
	_, err = createAPIServer(cfg)
	require.ErrorContains(t, err, "tool catalog")
}
