package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/comparison"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/history"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/imageio"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/logging"
)

type compareMatchJSON struct {
	Rank       int                `json:"rank"`
	CardID     string             `json:"card_id"`
	Side       string             `json:"side"`
	CardName   string             `json:"card_name,omitempty"`
	SetName    string             `json:"set_name,omitempty"`
	SideName   string             `json:"side_name,omitempty"`
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

type compareJSON struct {
	RunID       string             `json:"run_id,omitempty"`
	Reference   string             `json:"reference"`
	FunctionIDs []string           `json:"function_ids"`
	Candidates  int                `json:"candidates"`
	Matches     []compareMatchJSON `json:"matches"`
	Incomplete  []string           `json:"incomplete,omitempty"`
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var (
		top       int
		rotate    int
		width     int
		height    int
		asJSON    bool
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "compare <image>",
		Short: "Rank database cards by similarity to a reference image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session()
			if err != nil {
				return err
			}
			path := args[0]
			flags := cmd.Flags()
			if !flags.Changed("top") {
				top = s.cfg.Comparison.Top
			}
			opts := imageio.PrepareOptions{
				RotateDegrees: s.cfg.Comparison.RotateDegrees,
				Width:         s.cfg.Comparison.Width,
				Height:        s.cfg.Comparison.Height,
			}
			if flags.Changed("rotate") {
				opts.RotateDegrees = rotate
			}
			if flags.Changed("width") || flags.Changed("height") {
				opts.Width, opts.Height = width, height
			}

			img, err := imageio.FileDecoder{}.Decode(cmd.Context(), path)
			if err != nil {
				return err
			}
			img, err = imageio.Prepare(img, opts)
			if err != nil {
				return fmt.Errorf("prepare reference: %w", err)
			}

			db, err := s.openDatabase()
			if err != nil {
				return err
			}
			pipeline := &comparison.Pipeline{
				DB:      db,
				Workers: s.cfg.Comparison.Workers,
				Logger:  s.logger,
			}
			ranking, err := pipeline.Rank(cmd.Context(), path, img)
			if err != nil {
				return err
			}

			var runID string
			if s.cfg.Comparison.RecordHistory && !noHistory {
				run := history.FromRanking(ranking, top)
				err := s.withHistory(func(store *history.Store) error {
					if err := store.Record(cmd.Context(), run); err != nil {
						return err
					}
					_, err := store.Prune(cmd.Context(), s.cfg.History.Retention)
					return err
				})
				if err != nil {
					logging.WarnWithContext(s.logger, "comparison not recorded", "history_record_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "run is missing from history"),
					)
				} else {
					runID = run.ID
				}
			}

			if asJSON {
				return writeJSON(cmd, rankingJSON(ranking, top, runID))
			}
			printRanking(cmd, ranking, top, runID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&top, "top", "n", 10, "Number of matches to show")
	flags.IntVar(&rotate, "rotate", 0, "Rotate the reference counter-clockwise by this many degrees")
	flags.IntVar(&width, "width", 0, "Resize the reference to this width before hashing")
	flags.IntVar(&height, "height", 0, "Resize the reference to this height before hashing")
	flags.BoolVar(&asJSON, "json", false, "Output JSON")
	flags.BoolVar(&noHistory, "no-history", false, "Do not record this comparison")
	cmd.MarkFlagsRequiredTogether("width", "height")
	return cmd
}

func rankingJSON(r *comparison.Ranking, top int, runID string) compareJSON {
	out := compareJSON{
		RunID:       runID,
		Reference:   r.Reference,
		FunctionIDs: r.FunctionIDs,
		Candidates:  r.Candidates,
		Matches:     []compareMatchJSON{},
	}
	for i, m := range r.Top(top) {
		out.Matches = append(out.Matches, compareMatchJSON{
			Rank:       i + 1,
			CardID:     m.Subject.CardID,
			Side:       m.Subject.Side,
			CardName:   m.CardName,
			SetName:    m.SetName,
			SideName:   m.SideName,
			Score:      m.Score,
			Components: m.Components,
		})
	}
	for _, ce := range r.Incomplete {
		out.Incomplete = append(out.Incomplete, ce.Error())
	}
	return out
}

func printRanking(cmd *cobra.Command, r *comparison.Ranking, top int, runID string) {
	out := cmd.OutOrStdout()
	matches := r.Top(top)
	if len(matches) == 0 {
		fmt.Fprintln(out, "No candidates in the database")
	} else {
		rows := make([][]string, 0, len(matches))
		for i, m := range matches {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				formatScore(m.Score),
				m.CardName,
				m.SetName,
				m.Subject.Side,
				m.Subject.CardID,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Score", "Card", "Set", "Side", "Card ID"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}
	fmt.Fprintf(out, "Compared %d candidate(s) with %d hash function(s)\n", r.Candidates, len(r.FunctionIDs))
	if err := r.Err(); err != nil {
		var ce *comparison.CandidateError
		if errors.As(err, &ce) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d candidate(s) skipped, first: %v\n", len(r.Incomplete), ce)
		}
	}
	if runID != "" {
		fmt.Fprintf(out, "Recorded as run %s\n", shortRunID(runID))
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 4, 64)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
