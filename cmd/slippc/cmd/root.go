/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/slippc/pkg/batch"
	"github.com/ssargent/slippc/pkg/config"
	"github.com/ssargent/slippc/pkg/di"
	"github.com/ssargent/slippc/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

type configKey struct{}

// configFrom returns the configuration loaded by the root command
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// loadConfig reads the config file, then SLIPPC_* variables, then explicit flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	} else if !config.ConfigExists(path) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetInt("debug")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("full") {
		cfg.FullFrames, _ = flags.GetBool("full")
	}
	if flags.Changed("compress") {
		cfg.Output.Compress, _ = flags.GetBool("compress")
	}
	if flags.Changed("catalog-dir") {
		cfg.CatalogDir, _ = flags.GetString("catalog-dir")
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile, _ = flags.GetString("metrics-textfile")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRootCommand builds the slippc command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "slippc",
		Short: "slippc - Slippi replay decoder",
		Long: `slippc decodes Slippi (.slp) replays of Super Smash Bros. Melee into
frame-by-frame JSON documents, match analyses and columnar tables.

Input may be a single capture or a directory of captures (.slp or .slp.zst).
In directory mode every output flag names a directory.

Examples:
  slippc -i game.slp -j game.json
  slippc -i game.slp -j - -f
  slippc -i ./replays -j ./json -a ./analysis -t ./tables --workers 8`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		RunE: runConvert,
	}

	pf := rootCmd.PersistentFlags()
	pf.IntP("debug", "d", 0, "Debug level 0-9")
	pf.String("config", "", "Path to config file (default: ~/.config/slippc/config.yaml)")
	pf.String("catalog-dir", "", "Match catalog directory; directory runs skip cataloged matches")

	f := rootCmd.Flags()
	f.StringP("input", "i", "", "Capture file or directory of captures")
	f.StringP("json", "j", "", "JSON document output (- for stdout)")
	f.StringP("analysis", "a", "", "Analysis output (- for stdout)")
	f.StringP("tables", "t", "", "Directory for parquet tables and settings")
	f.BoolP("full", "f", false, "Write every frame field instead of deltas")
	f.Bool("force", false, "Reprocess matches already in the catalog")
	f.Bool("compress", false, "Write zstd compressed JSON documents in directory mode")
	f.Int("workers", 0, "Captures decoded at once (default: number of CPUs)")
	f.String("metrics-textfile", "", "Write run metrics to this node-exporter textfile")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newCatalogCommand())
	rootCmd.AddCommand(newInitCommand())

	return rootCmd
}

// runConvert decodes -i into the requested outputs
func runConvert(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		return cmd.Help()
	}
	if container == nil {
		return fmt.Errorf("dependency container not initialized")
	}
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	req := batch.Request{
		Input:       input,
		JSONOut:     stringFlagOr(cmd, "json", cfg.Output.JSONDir),
		AnalysisOut: stringFlagOr(cmd, "analysis", cfg.Output.AnalysisDir),
		TablesDir:   stringFlagOr(cmd, "tables", cfg.Output.TablesDir),
		Full:        cfg.FullFrames,
		Compress:    cfg.Output.Compress,
		SettingsDB:  cfg.Output.SettingsDB,
	}
	req.Force, _ = cmd.Flags().GetBool("force")

	log := logging.New(cfg.Debug, cmd.ErrOrStderr())

	var catalog batch.Catalog
	if cfg.CatalogDir != "" {
		c, err := container.OpenCatalog(cfg.CatalogDir, log)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer c.Close()
		catalog = c
	}

	runner := container.NewRunner(log, cfg.Workers, catalog)
	sum, err := runner.Run(cmd.Context(), req)
	if sum == nil {
		return err
	}

	for _, res := range sum.Files {
		if res.Err != nil {
			cmd.PrintErrf("%s %s: %v\n", res.Status, filepath.Base(res.Path), res.Err)
		}
	}
	if req.JSONOut != "-" && req.AnalysisOut != "-" {
		cmd.Printf("Processed %d files: %d ok, %d partial, %d skipped, %d failed\n",
			len(sum.Files), sum.OK, sum.Partial, sum.Skipped, sum.Failed)
	}

	if cfg.Metrics.Textfile != "" {
		if werr := runner.Metrics().WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			cmd.PrintErrf("Error writing metrics: %v\n", werr)
		}
	}

	if err != nil {
		return err
	}
	return sum.Err()
}

// stringFlagOr returns the flag when set, otherwise the configured fallback
func stringFlagOr(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

var rootCmd = NewRootCommand()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
