package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallRecoversPanics(t *testing.T) {
	res := Call(context.Background(), "broken", Func(func(ctx context.Context, args map[string]any) Result {
		panic("kaboom")
	}), nil)

	require.False(t, res.Success)
	require.Equal(t, CodePanic, res.Code)
	require.Contains(t, res.RawError, "kaboom")

	res = Call(context.Background(), "nil", nil, nil)
	require.Equal(t, CodeNotFound, res.Code)
}

func TestFromHandlerMapsErrors(t *testing.T) {
	ok := FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
		return "42000", nil
	})
	require.Equal(t, Succeed("42000"), ok.Invoke(context.Background(), nil))

	failing := FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("connection refused")
	})
	res := failing.Invoke(context.Background(), nil)
	require.False(t, res.Success)
	require.Equal(t, CodeFailed, res.Code)
	require.Equal(t, "connection refused", res.RawError)

	slow := FromHandler(func(ctx context.Context, args map[string]any) (any, error) {
		return nil, context.DeadlineExceeded
	})
	require.Equal(t, CodeTimeout, slow.Invoke(context.Background(), nil).Code)
}

func TestBuildParameterSchema(t *testing.T) {
	schema, err := compileSchema("t", BuildParameterSchema([]ParameterDef{
		{Name: "format", Type: "string", Enum: []string{"table", "json"}},
	}))
	require.NoError(t, err)
	require.NoError(t, validateArguments(schema, map[string]any{"format": "json"}))
	require.Error(t, validateArguments(schema, map[string]any{"format": "xml"}))
	require.NoError(t, validateArguments(schema, nil))
}
