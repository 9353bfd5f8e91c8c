package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	ragtool "github.com/kiosk404/ragrelay/internal/ragrelay/service/tool"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
	"github.com/stretchr/testify/require"
)

type reportTool struct {
	err  error
	args []string
}

func (r *reportTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "run report",
		Desc: "Runs a warehouse report",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"report": {Type: schema.String, Desc: "report name", Required: true},
		}),
	}, nil
}

func (r *reportTool) InvokableRun(_ context.Context, args string, _ ...tool.Option) (string, error) {
	r.args = append(r.args, args)
	if r.err != nil {
		return "", r.err
	}
	return "rows: 3", nil
}

func TestToolName(t *testing.T) {
	require.Equal(t, "external-engine-warehouse-run_report", ToolName("warehouse", "run report"))
	require.Equal(t, "external-engine-my_srv-a_b", ToolName("my.srv", "a/b"))
}

func TestDescribeRegistersAndInvokes(t *testing.T) {
	ctx := context.Background()
	inner := &reportTool{}
	d, err := Describe(ctx, "warehouse", inner)
	require.NoError(t, err)
	require.Equal(t, entity.StateExternalEngineCall, d.State)
	require.Equal(t, "Runs a warehouse report", d.Description)

	var schemaDoc map[string]any
	require.NoError(t, json.Unmarshal(d.ParameterSchema, &schemaDoc))
	require.Equal(t, "object", schemaDoc["type"])

	r := ragtool.NewRegistry()
	require.NoError(t, r.Register(d.Name, d))
	require.NoError(t, r.ValidateArguments(d.Name, map[string]any{"report": "q1"}))
	require.Error(t, r.ValidateArguments(d.Name, map[string]any{}))

	tl, err := r.Instantiate(d.Name)
	require.NoError(t, err)
	res := ragtool.Call(ctx, d.Name, tl, map[string]any{"report": "q1"})
	require.True(t, res.Success)
	require.Equal(t, "rows: 3", res.Content)
	require.Equal(t, []string{`{"report":"q1"}`}, inner.args)
}

func TestEngineToolFailures(t *testing.T) {
	ctx := context.Background()
	d, err := Describe(ctx, "warehouse", &reportTool{err: errors.New("engine offline")})
	require.NoError(t, err)
	tl, err := d.Factory()
	require.NoError(t, err)
	res := tl.Invoke(ctx, nil)
	require.False(t, res.Success)
	require.Equal(t, ragtool.CodeFailed, res.Code)
	require.Contains(t, res.RawError, "engine offline")

	d, err = Describe(ctx, "warehouse", &reportTool{err: context.DeadlineExceeded})
	require.NoError(t, err)
	tl, _ = d.Factory()
	require.Equal(t, ragtool.CodeTimeout, tl.Invoke(ctx, nil).Code)
}
