package main

import (
	"os"

	"github.com/kiosk404/ragrelay/internal/relayctl"
)

func main() {
	command := relayctl.NewDefaultRelayCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
