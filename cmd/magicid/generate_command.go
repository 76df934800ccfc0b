package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/catalog"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/generation"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/imageio"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/library"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Hash every library image missing from the card database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.session()
			if err != nil {
				return err
			}
			cat, err := catalog.Load(s.cfg.Paths.CatalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			functions, err := s.configuredFunctions()
			if err != nil {
				return err
			}
			db, err := s.openDatabase()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = s.cfg.Generation.Workers
			}

			out := cmd.OutOrStdout()
			bar := newProgressBar(out, !noProgress && isTerminal(out))
			pipeline := &generation.Pipeline{
				DB:             db,
				Functions:      functions,
				Resolver:       cat,
				Library:        library.Walker{Root: s.cfg.Paths.LibraryDir},
				Decoder:        imageio.FileDecoder{},
				Workers:        workers,
				Logger:         s.logger,
				Progress:       bar.update,
				ProgressBucket: s.cfg.Generation.ProgressBucket,
			}
			summary, err := pipeline.Run(cmd.Context())
			bar.finish()
			if err != nil {
				return err
			}

			fmt.Fprintln(out, renderFields([][2]string{
				{"Images", strconv.Itoa(summary.Images)},
				{"Hashes computed", strconv.Itoa(summary.Computed)},
				{"Already hashed", strconv.Itoa(summary.Skipped)},
				{"Not in catalog", strconv.Itoa(summary.Unresolved)},
				{"Failed", strconv.Itoa(summary.Failed)},
				{"Functions registered", strconv.Itoa(summary.Registered)},
				{"Duration", generation.FormatDuration(summary.Duration.Round(time.Second))},
			}))
			if summary.Errors != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d image(s) failed; see %s\n", summary.Failed, s.cfg.LogFilePath())
			}
			fmt.Fprintf(out, "Database saved to %s\n", db.Path())
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of hashing workers (default from config)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// generationBar draws a progress bar once the total is known. A disabled bar
// ignores updates.
type generationBar struct {
	out     io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
}

func newProgressBar(out io.Writer, enabled bool) *generationBar {
	return &generationBar{out: out, enabled: enabled}
}

func (b *generationBar) update(p generation.Progress) {
	if !b.enabled || p.Total == 0 {
		return
	}
	if b.bar == nil {
		b.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(b.out),
			progressbar.OptionSetDescription("hashing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = b.bar.Set(p.Processed)
}

func (b *generationBar) finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}
