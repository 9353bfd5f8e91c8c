package mcp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// ExternalEnginePrefix starts the registry name of every MCP tool.
const ExternalEnginePrefix = "external-engine"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ToolName builds the registry name of tool on server. Model APIs only
// accept [A-Za-z0-9_-] in function names.
func ToolName(server, tool string) string {
	parts := []string{ExternalEnginePrefix, server, tool}
	for i, p := range parts {
		parts[i] = strings.Trim(unsafeNameChars.ReplaceAllString(p, "_"), "_")
	}
	return strings.Join(parts, "-")
}

// Descriptors adapts the tools of a connected server into registry
// descriptors. Tools that cannot be invoked are skipped.
func Descriptors(ctx context.Context, srv *MCPServer) ([]tool.Descriptor, error) {
	var out []tool.Descriptor
	for _, bt := range srv.Tools() {
		it, ok := bt.(einotool.InvokableTool)
		if !ok {
			continue
		}
		d, err := Describe(ctx, srv.Name(), it)
		if err != nil {
			return nil, err
		}
		if srv.Config() != nil && srv.Config().Display != "" {
			d.Display = srv.Config().Display
		}
		out = append(out, d)
	}
	return out, nil
}

// Describe builds the descriptor of a single eino tool.
func Describe(ctx context.Context, server string, it einotool.InvokableTool) (tool.Descriptor, error) {
	info, err := it.Info(ctx)
	if err != nil {
		return tool.Descriptor{}, fmt.Errorf("[MCP] server %q: read tool info: %w", server, err)
	}

	schema := json.RawMessage(`{"type":"object"}`)
	if info.ParamsOneOf != nil {
		js, err := info.ParamsOneOf.ToJSONSchema()
		if err != nil {
			return tool.Descriptor{}, fmt.Errorf("[MCP] tool %s: convert schema: %w", info.Name, err)
		}
		if js != nil {
			raw, err := json.Marshal(js)
			if err != nil {
				return tool.Descriptor{}, fmt.Errorf("[MCP] tool %s: encode schema: %w", info.Name, err)
			}
			schema = raw
		}
	}

	desc := info.Desc
	if desc == "" {
		desc = fmt.Sprintf("Tool %s of external engine %s", info.Name, server)
	}
	return tool.Descriptor{
		Name:            ToolName(server, info.Name),
		Description:     desc,
		ParameterSchema: schema,
		Enabled:         true,
		State:           entity.StateExternalEngineCall,
		Display:         fmt.Sprintf("Asking %s (%s)", server, info.Name),
		Factory: func() (tool.Tool, error) {
			return &engineTool{server: server, inner: it}, nil
		},
	}, nil
}

// engineTool forwards calls to an MCP tool. The underlying client is
// shared by all sessions.
type engineTool struct {
	server string
	inner  einotool.InvokableTool
}

func (t *engineTool) Invoke(ctx context.Context, args map[string]any) tool.Result {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.MarshalString(args)
	if err != nil {
		return tool.FailCode(tool.CodeInvalidArguments, err)
	}
	out, err := t.inner.InvokableRun(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return tool.FailCode(tool.CodeCancelled, err)
		case errors.Is(err, context.DeadlineExceeded):
			return tool.FailCode(tool.CodeTimeout, err)
		}
		return tool.Fail(fmt.Errorf("external engine %s: %w", t.server, err))
	}
	return tool.Succeed(out)
}
