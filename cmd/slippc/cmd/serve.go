/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/slippc/pkg/api"
	"github.com/ssargent/slippc/pkg/logging"
)

func newServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the slippc REST API server. Uploaded captures are decoded on request
and returned as JSON documents, analyses or settings. Decoded matches can be
recorded in the match catalog.

Examples:
  slippc serve
  slippc serve --bind 0.0.0.0 --port 9000 --api-key=mysecretkey
  curl --data-binary @game.slp 'localhost:8080/api/v1/replays?frameStart=0&frameEnd=600'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if container == nil {
				return fmt.Errorf("dependency container not initialized")
			}
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("bind") {
				cfg.Server.Bind, _ = flags.GetString("bind")
			}
			if flags.Changed("port") {
				cfg.Server.Port, _ = flags.GetInt("port")
			}
			if flags.Changed("api-key") {
				cfg.Server.APIKey, _ = flags.GetString("api-key")
			}

			log := logging.NewJSON(cfg.Debug, cmd.ErrOrStderr())

			var catalog api.MatchStore
			if cfg.CatalogDir != "" {
				c, err := container.OpenCatalog(cfg.CatalogDir, log)
				if err != nil {
					return fmt.Errorf("failed to open catalog: %w", err)
				}
				defer c.Close()
				catalog = c
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmd.Printf("Starting slippc server on %s:%d\n", cfg.Server.Bind, cfg.Server.Port)
			if cfg.CatalogDir != "" {
				cmd.Printf("Catalog directory: %s\n", cfg.CatalogDir)
			}

			starter := container.GetServerFactory().CreateServerStarter()
			return starter.StartServer(ctx, catalog, api.ServerConfig{
				Bind:           cfg.Server.Bind,
				Port:           cfg.Server.Port,
				APIKey:         cfg.Server.APIKey,
				MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
			}, log)
		},
	}

	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("api-key", "", "API key required in X-API-Key, empty to disable")

	return serveCmd
}
