package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/voyager/config"
	srv "github.com/mohammad-safakhou/voyager/internal/server"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the search orchestrator HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config.json)")

	return serve
}
