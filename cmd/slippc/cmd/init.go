/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/slippc/pkg/config"
)

func newInitCommand() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a configuration file holding the defaults, any SLIPPC_* environment
overrides and, optionally, a generated API key for the server.

Examples:
  slippc init
  slippc init --config ./slippc.yaml --generate-api-key
  slippc init --force`,
		Args: cobra.NoArgs,
		// the file does not exist yet, so skip the root loader
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			force, _ := cmd.Flags().GetBool("force")
			genKey, _ := cmd.Flags().GetBool("generate-api-key")

			if path == "" {
				path = config.GetDefaultConfigPath()
			}
			if config.ConfigExists(path) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg := config.DefaultConfig()
			if err := config.ApplyEnv(cfg); err != nil {
				return err
			}
			if genKey {
				key, err := generateAPIKey()
				if err != nil {
					return err
				}
				cfg.Server.APIKey = key
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}

			cmd.Printf("Configuration written to %s\n", path)
			if genKey {
				cmd.Printf("API key: %s\n", cfg.Server.APIKey)
			}
			return nil
		},
	}

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("generate-api-key", false, "Generate an API key for the server")

	return initCmd
}

// generateAPIKey generates a secure random API key
func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random API key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
