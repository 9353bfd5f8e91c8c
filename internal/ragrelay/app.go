package ragrelay

import (
	"github.com/kiosk404/ragrelay/internal/ragrelay/config"
	"github.com/kiosk404/ragrelay/internal/ragrelay/options"
	"github.com/kiosk404/ragrelay/pkg/app"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

const commandDesc = `ragrelay answers questions over documents, a knowledge graph and a SQL
database. Each chat turn is planned as a sequence of tool calls whose
progress and answer are streamed back as protocol frames.`

// NewApp creates the ragrelay server application.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("ragrelay",
		basename,
		app.WithOptions(opts),
		app.WithDescription(commandDesc),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		if err := logger.InitLog(opts.LogOptions.File); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return Run(cfg)
	}
}
