package options

import (
	"github.com/spf13/pflag"
)

// MCPOptions point at the external engine servers file, in the
// {"mcpServers": {...}} format.
type MCPOptions struct {
	// ConfigFile is optional; a missing file means no external engines.
	ConfigFile string `json:"config-file" mapstructure:"config-file"`
}

func NewMCPOptions() *MCPOptions {
	return &MCPOptions{
		ConfigFile: "conf/mcp.json",
	}
}

func (o *MCPOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "mcp.config-file", o.ConfigFile, "Path to the MCP servers file.")
}

// ToolsOptions adjust the registered tools.
type ToolsOptions struct {
	// CatalogFile may disable tools and override their descriptions.
	CatalogFile string `json:"catalog-file" mapstructure:"catalog-file"`
}

func NewToolsOptions() *ToolsOptions {
	return &ToolsOptions{CatalogFile: "conf/tools.yaml"}
}

func (o *ToolsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.CatalogFile, "tools.catalog-file", o.CatalogFile, "YAML file that enables, disables and describes tools.")
}
