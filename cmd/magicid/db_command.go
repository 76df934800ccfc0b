package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/carddb"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Card database maintenance",
	}
	dbCmd.AddCommand(newDBStatsCommand(ctx))
	dbCmd.AddCommand(newDBPruneCommand(ctx))
	return dbCmd
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show card database counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session()
			if err != nil {
				return err
			}
			db, err := s.openDatabase()
			if err != nil {
				return err
			}
			stats := db.Stats()
			if asJSON {
				return writeJSON(cmd, statsJSON(db.Path(), stats))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFields([][2]string{
				{"Path", db.Path()},
				{"Cards", strconv.Itoa(stats.Cards)},
				{"Sides", strconv.Itoa(stats.Sides)},
				{"Hashes", strconv.Itoa(stats.Hashes)},
				{"Hash functions", strconv.Itoa(stats.Functions)},
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func statsJSON(path string, stats carddb.Stats) map[string]any {
	return map[string]any{
		"path":         path,
		"cards":        stats.Cards,
		"sides":        stats.Sides,
		"hashes":       stats.Hashes,
		"functions":    stats.Functions,
		"per_function": stats.PerFunction,
	}
}

func newDBPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove hash functions and hashes that are no longer configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session()
			if err != nil {
				return err
			}
			functions, err := s.configuredFunctions()
			if err != nil {
				return err
			}
			db, err := s.openDatabase()
			if err != nil {
				return err
			}
			unlock, err := db.Lock()
			if err != nil {
				return err
			}
			defer func() { _ = unlock() }()

			keep := make([]string, 0, len(functions))
			for _, identity := range functions {
				keep = append(keep, identity.ID())
			}
			report := db.Prune(keep)
			if report.Functions == 0 && report.Hashes == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to prune")
				return nil
			}
			if err := db.Save(); err != nil {
				return fmt.Errorf("save database: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d hash function(s) and %d hash(es)\n", report.Functions, report.Hashes)
			return nil
		},
	}
}
