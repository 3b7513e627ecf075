package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ssargent/slippc/pkg/logging"
	"github.com/ssargent/slippc/pkg/storage"
)

func newCatalogCommand() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the match catalog",
		Long: `Inspect the catalog of processed matches. Batch runs skip matches that
are already cataloged unless --force is given.

Examples:
  slippc catalog list
  slippc catalog show mode.unranked-2024-01-01T12:00:00.00-0 --format json
  slippc catalog delete mode.unranked-2024-01-01T12:00:00.00-0`,
	}
	catalogCmd.PersistentFlags().String("format", "table", "Output format: table or json")

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cataloged matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(c *storage.Catalog) error {
				entries, err := c.List()
				if err != nil {
					return fmt.Errorf("failed to list matches: %w", err)
				}
				if isJSON(cmd) {
					if entries == nil {
						entries = []storage.Entry{}
					}
					return outputJSON(cmd.OutOrStdout(), entries)
				}
				return outputEntriesTable(cmd.OutOrStdout(), entries)
			})
		},
	})

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "show <match-id>",
		Short: "Show one cataloged match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(c *storage.Catalog) error {
				e, err := c.Get(args[0])
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("match %q is not cataloged", args[0])
				}
				if err != nil {
					return err
				}
				if isJSON(cmd) {
					return outputJSON(cmd.OutOrStdout(), e)
				}
				return outputEntryTable(cmd.OutOrStdout(), e)
			})
		},
	})

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "delete <match-id>",
		Short: "Remove a match so the next run processes it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(c *storage.Catalog) error {
				if err := c.Delete(args[0]); err != nil {
					return fmt.Errorf("failed to delete match: %w", err)
				}
				cmd.Printf("Deleted match '%s'\n", args[0])
				return nil
			})
		},
	})

	return catalogCmd
}

// withCatalog opens the configured catalog for the duration of fn
func withCatalog(cmd *cobra.Command, fn func(*storage.Catalog) error) error {
	if container == nil {
		return fmt.Errorf("dependency container not initialized")
	}
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	if cfg.CatalogDir == "" {
		return fmt.Errorf("no catalog directory configured")
	}
	c, err := container.OpenCatalog(cfg.CatalogDir, logging.New(cfg.Debug, cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer c.Close()
	return fn(c)
}

func isJSON(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("format")
	return format == "json"
}

func outputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// outputEntryTable displays a single entry in table format
func outputEntryTable(out io.Writer, e storage.Entry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Match:\t%s\n", e.MatchID)
	fmt.Fprintf(w, "Source:\t%s\n", e.Source)
	fmt.Fprintf(w, "Version:\t%s\n", e.SlippiVersion)
	fmt.Fprintf(w, "Stage:\t%d\n", e.Stage)
	fmt.Fprintf(w, "Frames:\t%d\n", e.FrameCount)
	fmt.Fprintf(w, "Winner:\t%d\n", e.WinnerID)
	fmt.Fprintf(w, "Players:\t%s\n", strings.Join(e.Players, ", "))
	if e.Incomplete {
		fmt.Fprintf(w, "Incomplete:\tyes\n")
	}
	fmt.Fprintf(w, "Run:\t%s\n", e.RunID)
	fmt.Fprintf(w, "Cataloged:\t%s\n", e.CatalogedAt.Format(time.RFC3339))

	return nil
}

// outputEntriesTable displays entries in table format
func outputEntriesTable(out io.Writer, entries []storage.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matches found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "MATCH\tSTAGE\tFRAMES\tWINNER\tPLAYERS\tSOURCE")
	for _, e := range entries {
		players := strings.Join(e.Players, ", ")
		if len(players) > 40 {
			players = players[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
			e.MatchID, e.Stage, e.FrameCount, e.WinnerID, players, e.Source)
	}

	return nil
}
