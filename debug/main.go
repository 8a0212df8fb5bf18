package main

import (
	"github.com/emrgen/panorama/internal/config"
	"github.com/emrgen/panorama/internal/server"
)

func main() {
	cfg := config.LoadConfig()
	cfg.LogLevel = "debug"

	server.NewServer(cfg).Start()
}
