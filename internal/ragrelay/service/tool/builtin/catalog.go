package builtin

import (
	"fmt"
	"os"
	"sort"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"gopkg.in/yaml.v3"
)

// Catalog adjusts tool descriptors from a YAML file:
//
//	tools:
//	  further-questions:
//	    enabled: false
//	  sql-query:
//	    description: Query the sales warehouse.
//	    display: Checking the numbers
type Catalog struct {
	Tools map[string]CatalogEntry `yaml:"tools"`
}

type CatalogEntry struct {
	// Enabled can only switch a tool off when its backend is missing.
	Enabled     *bool  `yaml:"enabled"`
	Description string `yaml:"description"`
	Display     string `yaml:"display"`
}

// LoadCatalog reads path; an empty path or a missing file yields an empty
// catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{Tools: map[string]CatalogEntry{}}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read tool catalog %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse tool catalog %q: %w", path, err)
	}
	if c.Tools == nil {
		c.Tools = map[string]CatalogEntry{}
	}
	return c, nil
}

// Apply overlays the entry for name onto d. A tool without a backend
// stays disabled whatever the catalog says.
func (c *Catalog) Apply(name string, d *tool.Descriptor) {
	if c == nil {
		return
	}
	e, ok := c.Tools[name]
	if !ok {
		return
	}
	if e.Enabled != nil {
		d.Enabled = d.Enabled && *e.Enabled
	}
	if e.Description != "" {
		d.Description = e.Description
	}
	if e.Display != "" {
		d.Display = e.Display
	}
}

// Unknown returns, sorted, the catalog entries that name no registered
// tool.
func (c *Catalog) Unknown(r *tool.Registry) []string {
	if c == nil {
		return nil
	}
	var out []string
	for name := range c.Tools {
		if _, ok := r.Get(name); !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
