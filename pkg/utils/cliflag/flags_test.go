package cliflag

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestNamedFlagSetsKeepOrder(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("serving").String("bind-address", "0.0.0.0", "address")
	fss.FlagSet("chat").Int("max-steps", 10, "steps")
	fss.FlagSet("serving").Int("bind-port", 8080, "port")

	require.Equal(t, []string{"serving", "chat"}, fss.Order)

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)
	out := buf.String()
	require.Contains(t, out, "Serving flags:")
	require.Contains(t, out, "--max-steps")
	require.Less(t, bytes.Index(buf.Bytes(), []byte("Serving")), bytes.Index(buf.Bytes(), []byte("Chat")))
}

func TestWordSepNormalize(t *testing.T) {
	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	require.Equal(t, pflag.NormalizedName("max-steps"), WordSepNormalizeFunc(fs, "max_steps"))
	require.Equal(t, pflag.NormalizedName("port"), WordSepNormalizeFunc(fs, "port"))
}
