// Package relayctl is the command line client of ragrelay.
package relayctl

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/kiosk404/ragrelay/internal/ragrelay/handler/middleware"
	"github.com/kiosk404/ragrelay/pkg/utils/cliflag"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagServer  = "server"
	flagToken   = "token"
	flagTimeout = "timeout"

	defaultServer = "http://127.0.0.1:8088"
)

// IOStreams are the standard streams of a command.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// factory builds clients from the global flags, which may also come from
// RELAYCTL_* environment variables.
type factory struct {
	v *viper.Viper
}

func (f *factory) Client() *Client {
	token := f.v.GetString(flagToken)
	if token == "" {
		token = os.Getenv(middleware.TokenEnv)
	}
	return NewClient(f.v.GetString(flagServer), token, nil)
}

func (f *factory) Timeout() time.Duration {
	return f.v.GetDuration(flagTimeout)
}

// NewDefaultRelayCtlCommand creates the `relayctl` command with default arguments.
func NewDefaultRelayCtlCommand() *cobra.Command {
	return NewRelayCtlCommand(IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
}

func NewRelayCtlCommand(streams IOStreams) *cobra.Command {
	cmds := &cobra.Command{
		Use:   "relayctl",
		Short: "relayctl talks to a ragrelay server",
		Long: heredoc.Doc(`
			relayctl is the command line client of ragrelay.

			It asks questions and renders the streamed tool calls and answer,
			lists the tools the server offers and manages stored chats.`),
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	cmds.SetIn(streams.In)
	cmds.SetOut(streams.Out)
	cmds.SetErr(streams.ErrOut)

	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	flags.String(flagServer, defaultServer, "Address of the ragrelay HTTP server.")
	flags.String(flagToken, "", "Bearer token, falls back to $"+middleware.TokenEnv+".")
	flags.Duration(flagTimeout, 30*time.Second, "Timeout of non-streaming requests.")

	v := viper.New()
	v.SetEnvPrefix("RELAYCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
	f := &factory{v: v}

	cmds.AddCommand(
		newCmdAsk(f, streams),
		newCmdTools(f, streams),
		newCmdChats(f, streams),
	)
	return cmds
}
