package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded comparisons",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent comparisons",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session()
			if err != nil {
				return err
			}
			return s.withHistory(func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No comparisons recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortRunID(run.ID),
						run.CreatedAt.Local().Format(time.DateTime),
						run.Reference,
						strconv.Itoa(run.Candidates),
						strconv.Itoa(run.Incomplete),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "When", "Reference", "Candidates", "Incomplete"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the matches of a recorded comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session()
			if err != nil {
				return err
			}
			return s.withHistory(func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, run)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderFields([][2]string{
					{"Run", run.ID},
					{"When", run.CreatedAt.Local().Format(time.DateTime)},
					{"Reference", run.Reference},
					{"Candidates", strconv.Itoa(run.Candidates)},
					{"Incomplete", strconv.Itoa(run.Incomplete)},
					{"Functions", strings.Join(shortIDs(run.FunctionIDs), " ")},
				}))
				rows := make([][]string, 0, len(run.Matches))
				for _, m := range run.Matches {
					rows = append(rows, []string{
						strconv.Itoa(m.Rank),
						formatScore(m.Score),
						m.CardName,
						m.SetName,
						m.Side,
						m.CardID,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Score", "Card", "Set", "Side", "Card ID"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func shortIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, shortRunID(id))
	}
	return out
}
