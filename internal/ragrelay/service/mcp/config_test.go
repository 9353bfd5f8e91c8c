package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMCPConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadMCPConfig(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.Empty(t, cfg.MCPServers)

	path := filepath.Join(dir, "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mcpServers": {
			"warehouse": {"transport": "sse", "url": "http://localhost:8080/sse", "toolFilter": ["run_report"]},
			"files": {"command": "mcp-files", "args": ["/srv"]},
			"broken": {"transport": "carrier-pigeon"},
			"nourl": {"transport": "streamable-http"}
		}
	}`), 0o644))
	cfg, err = LoadMCPConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.MCPServers, 4)
	require.Equal(t, []string{"run_report"}, cfg.MCPServers["warehouse"].ToolFilter)

	errs := cfg.Validate()
	require.Len(t, errs, 2)
	require.Equal(t, TransportStdio, cfg.MCPServers["files"].Transport)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	_, err = LoadMCPConfig(path)
	require.Error(t, err)
}
