package main

import (
	"github.com/kiosk404/ragrelay/internal/ragrelay"
	_ "go.uber.org/automaxprocs"
)

func main() {
	ragrelay.NewApp("ragrelay").Run()
}
