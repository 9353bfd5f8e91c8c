package ragrelay

import (
	"github.com/kiosk404/ragrelay/internal/ragrelay/config"
)

func Run(cfg *config.Config) error {
	server, err := createAPIServer(cfg)
	if err != nil {
		return err
	}

	return server.PrepareRun().Run()
}
