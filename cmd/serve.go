package cmd

import (
	"github.com/emrgen/panorama/internal/config"
	"github.com/emrgen/panorama/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port string

	command := &cobra.Command{
		Use:   "serve",
		Short: "start the http server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadConfig()
			if port != "" {
				cfg.HTTPPort = port
			}
			server.NewServer(cfg).Start()
		},
	}

	command.Flags().StringVarP(&port, "port", "P", "", "http port, overrides HTTP_PORT")

	return command
}
