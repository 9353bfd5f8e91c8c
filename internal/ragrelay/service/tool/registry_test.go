package tool

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterTool struct{ calls int }

func (c *counterTool) Invoke(ctx context.Context, args map[string]any) Result {
	c.calls++
	return Succeed(c.calls)
}

func counterDescriptor(desc string) Descriptor {
	return Descriptor{
		Description: desc,
		Parameters: []ParameterDef{
			{Name: "question", Type: "string", Required: true},
			{Name: "page", Type: "integer"},
		},
		Enabled: true,
		State:   entity.StateDatabaseQuery,
		Factory: func() (Tool, error) { return &counterTool{}, nil },
	}
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"sql-query", "knowledge-retrieval", "response-generation"} {
		require.NoError(t, r.Register(name, counterDescriptor(name)))
	}
	require.Equal(t, []string{"sql-query", "knowledge-retrieval", "response-generation"}, r.List())
	require.Equal(t, 3, r.Len())
}

func TestRegistryLastWriterWinsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	r := NewRegistry()
	require.NoError(t, r.Register("sql-query", counterDescriptor("first")))
	require.NoError(t, r.Register("deep-research", counterDescriptor("other")))
	require.NoError(t, r.Register("sql-query", counterDescriptor("second")))

	d, ok := r.Get("sql-query")
	require.True(t, ok)
	require.Equal(t, "second", d.Description)
	require.Equal(t, []string{"sql-query", "deep-research"}, r.List())
	require.Contains(t, buf.String(), `tool \"sql-query\" already registered`)
}

func TestRegistryReturnsCopies(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("sql-query", counterDescriptor("sql")))

	d, _ := r.Get("sql-query")
	d.Parameters[0].Name = "mutated"
	d.Description = "mutated"

	again, _ := r.Get("sql-query")
	require.Equal(t, "question", again.Parameters[0].Name)
	require.Equal(t, "sql", again.Description)
	require.NotNil(t, again.Factory)
}

func TestRegistryInstantiatesIndependentTools(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("sql-query", counterDescriptor("sql")))

	a, err := r.Instantiate("sql-query")
	require.NoError(t, err)
	b, err := r.Instantiate("sql-query")
	require.NoError(t, err)

	a.Invoke(context.Background(), nil)
	a.Invoke(context.Background(), nil)
	require.Equal(t, 1, b.Invoke(context.Background(), nil).Content)

	_, err = r.Instantiate("missing")
	require.ErrorIs(t, err, ErrToolNotFound)

	require.NoError(t, r.SetEnabled("sql-query", false))
	_, err = r.Instantiate("sql-query")
	require.ErrorIs(t, err, ErrToolDisabled)
	require.Empty(t, r.Enabled())
}

func TestRegistryValidatesArguments(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("sql-query", counterDescriptor("sql")))

	require.NoError(t, r.ValidateArguments("sql-query", map[string]any{"question": "q", "page": 2}))
	require.ErrorIs(t, r.ValidateArguments("sql-query", map[string]any{"page": 2}), ErrInvalidArguments)
	require.ErrorIs(t, r.ValidateArguments("sql-query", map[string]any{"question": 3}), ErrInvalidArguments)
	require.ErrorIs(t, r.ValidateArguments("nope", nil), ErrToolNotFound)
}

func TestRegistryRejectsBrokenSchema(t *testing.T) {
	r := NewRegistry()
	d := counterDescriptor("sql")
	d.ParameterSchema = []byte(`{"type": 12}`)
	require.Error(t, r.Register("sql-query", d))
	require.Error(t, r.Register("", counterDescriptor("x")))
	require.Zero(t, r.Len())
}

func TestRegistryConcurrentReads(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("sql-query", counterDescriptor("sql")))
	require.NoError(t, r.Register("knowledge-retrieval", counterDescriptor("kb")))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_, ok := r.Get("sql-query")
				assert.True(t, ok)
				assert.Len(t, r.List(), 2)
				tl, err := r.Instantiate("knowledge-retrieval")
				if assert.NoError(t, err) {
					tl.Invoke(context.Background(), nil)
				}
			}
		}()
	}
	wg.Wait()
}
