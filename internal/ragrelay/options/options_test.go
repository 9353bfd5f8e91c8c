package options

import (
	"testing"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/database"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	o := NewOptions()
	require.Empty(t, o.Validate())
	require.False(t, o.KnowledgeOptions.Enabled())

	fss := o.Flags()
	for _, name := range []string{"grpc", "generic", "models", "chat", "store", "knowledge", "sql", "tools", "mcp", "auth", "log"} {
		require.NotNil(t, fss.FlagSets[name], name)
	}
	require.NotNil(t, fss.FlagSets["chat"].Lookup("chat.max-steps"))
	require.NotNil(t, fss.FlagSets["store"].Lookup("store.redis.addr"))
}

func TestValidateReportsEveryGroup(t *testing.T) {
	t.Setenv("RAGRELAY_TOKEN", "")
	o := NewOptions()
	o.ChatOptions.Policy = "dice"
	o.ChatOptions.Dispatcher = "random"
	o.StoreOptions.Type = "mongo"
	o.KnowledgeOptions.ChunkOverlap = 500
	o.SQLOptions.Driver = "postgres"
	o.AuthOptions.Enabled = true

	require.Len(t, o.Validate(), 6)
}

func TestApplyTo(t *testing.T) {
	o := NewOptions()
	o.ChatOptions.MaxSteps = 4
	o.ChatOptions.StepTimeout = time.Second
	o.ChatOptions.Policy = chat.PolicyLLM
	o.StoreOptions.Type = chat.StoreBoltDB
	o.StoreOptions.BoltDBPath = "/tmp/x.db"

	var cc chat.Config
	o.ChatOptions.ApplyTo(&cc)
	o.StoreOptions.ApplyTo(&cc)
	require.Equal(t, 4, cc.MaxSteps)
	require.Equal(t, time.Second, cc.StepTimeout)
	require.Equal(t, chat.PolicyLLM, cc.Policy)
	require.Equal(t, chat.StoreBoltDB, cc.StoreType)
	require.Equal(t, "/tmp/x.db", cc.BoltDBPath)
	require.Equal(t, "127.0.0.1:6379", cc.Redis.Addr)

	o.KnowledgeOptions.DocsDir = "docs"
	require.True(t, o.KnowledgeOptions.Enabled())
	var kc knowledge.Config
	o.KnowledgeOptions.ApplyTo(&kc)
	require.Equal(t, "docs", kc.DocsDir)
	require.Equal(t, 80, kc.ChunkOverlap)

	var dc database.Config
	o.SQLOptions.DSN = "sales.db"
	o.SQLOptions.ApplyTo(&dc)
	require.Equal(t, "sales.db", dc.DSN)
	require.True(t, dc.ReadOnly)
}

func TestStringRedactsSecrets(t *testing.T) {
	o := NewOptions()
	o.AuthOptions.Token = "s3cret"
	o.StoreOptions.Redis.Password = "hunter2"

	s := o.String()
	require.NotContains(t, s, "s3cret")
	require.NotContains(t, s, "hunter2")
	require.Equal(t, "s3cret", o.AuthOptions.Token)
}
