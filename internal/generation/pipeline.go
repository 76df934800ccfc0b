package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/carddb"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/catalog"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/imageio"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/library"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/logging"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
)

const progressStage = "hashing"

// Pipeline computes missing hashes for a library.
type Pipeline struct {
	DB        *carddb.Database
	Functions []*hashfunc.Identity
	Resolver  catalog.Resolver
	Library   library.Walker
	Decoder   imageio.Decoder
	Workers   int
	Logger    *slog.Logger
	Progress  ProgressFunc
	// ProgressBucket is the percentage step between progress log lines.
	ProgressBucket float64
}

// Summary reports what a run did.
type Summary struct {
	Images int
	// Computed counts stored hashes, not images.
	Computed   int
	Skipped    int
	Unresolved int
	Failed     int
	Registered int
	Duration   time.Duration
	// Errors aggregates per-image failures. Nil when every image succeeded.
	Errors error
}

type job struct {
	entry   library.Entry
	cardID  string
	missing []*hashfunc.Identity
}

type outcomeKind int

const (
	outcomeHashed outcomeKind = iota
	outcomeSkipped
	outcomeUnresolved
)

type outcome struct {
	kind    outcomeKind
	job     job
	results []similarity.Result
	errs    []error
}

// Run executes the pipeline. It holds the database writer lock for the
// whole run and saves the database before returning, also when the run is
// cancelled. Per-image failures end up in Summary.Errors; the returned
// error is reserved for failures that stop the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if p.DB == nil || p.Resolver == nil {
		return Summary{}, errors.New("generation: database and resolver are required")
	}
	if len(p.Functions) == 0 {
		return Summary{}, errors.New("generation: no hash functions configured")
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "generation")
	decoder := p.Decoder
	if decoder == nil {
		decoder = imageio.FileDecoder{}
	}
	workers := max(p.Workers, 1)

	unlock, err := p.DB.Lock()
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("failed to release database lock", logging.Error(err))
		}
	}()

	start := time.Now()
	var summary Summary
	for _, identity := range p.Functions {
		if p.DB.RegisterFunction(identity) {
			summary.Registered++
			logger.Info("registered hash function",
				logging.String("function_name", identity.Name()),
				logging.String(logging.FieldHashFunction, identity.ID()),
			)
		}
	}

	entries, err := p.Library.Entries()
	if err != nil {
		return summary, fmt.Errorf("walk library: %w", err)
	}
	summary.Images = len(entries)
	logger.Info("generation started",
		logging.Int("images", len(entries)),
		logging.Int("hash_functions", len(p.Functions)),
		logging.Int("workers", workers),
		logging.String("library_dir", p.Library.Root),
		logging.String("fingerprint", library.Fingerprint(entries)),
	)

	jobs := make(chan job)
	outcomes := make(chan outcome)
	work, gctx := errgroup.WithContext(ctx)

	work.Go(func() error {
		defer close(jobs)
		for _, entry := range entries {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, dispatch := p.plan(logger, entry)
			var err error
			if dispatch {
				err = send(gctx, jobs, o.job)
			} else {
				err = send(gctx, outcomes, o)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	for range workers {
		work.Go(func() error {
			for j := range jobs {
				if err := send(gctx, outcomes, p.hash(gctx, logger, decoder, j)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	var workErr error
	go func() {
		workErr = work.Wait()
		close(outcomes)
	}()

	var (
		mErr      *multierror.Error
		processed int
		sampler   = logging.NewProgressSampler(p.ProgressBucket)
	)
	for o := range outcomes {
		switch o.kind {
		case outcomeSkipped:
			summary.Skipped++
		case outcomeUnresolved:
			summary.Unresolved++
		case outcomeHashed:
			failed := len(o.errs) > 0
			for _, err := range o.errs {
				mErr = multierror.Append(mErr, err)
			}
			for _, result := range o.results {
				stored, err := p.DB.StoreResult(o.job.cardID, o.job.entry.Side, cardContext(o.job.entry), result)
				if err != nil {
					failed = true
					mErr = multierror.Append(mErr, fmt.Errorf("store %s: %w", o.job.entry.RelPath, err))
					continue
				}
				if stored {
					summary.Computed++
				}
			}
			if failed {
				summary.Failed++
			}
		}
		processed++
		progress := newProgress(processed, len(entries), time.Since(start))
		if p.Progress != nil {
			p.Progress(progress)
		}
		if sampler.ShouldLog(progress.Percent(), progressStage) {
			logger.Info("generation progress",
				logging.Int("processed", progress.Processed),
				logging.Int("total", progress.Total),
				logging.Float64(logging.FieldProgressPercent, progress.Percent()),
				logging.String(logging.FieldProgressETA, FormatDuration(progress.Remaining)),
			)
		}
	}

	summary.Duration = time.Since(start)
	summary.Errors = mErr.ErrorOrNil()
	saveErr := p.DB.Save()
	if workErr != nil {
		logging.WarnWithContext(logger, "generation interrupted", "generation_interrupted",
			logging.Int("processed", processed),
			logging.Int("total", len(entries)),
			logging.Error(workErr),
			logging.String(logging.FieldErrorHint, "rerun generate to continue where it stopped"),
			logging.String(logging.FieldImpact, "hashes computed so far are kept"),
		)
		return summary, errors.Join(workErr, saveErr)
	}
	if saveErr != nil {
		return summary, fmt.Errorf("save database: %w", saveErr)
	}

	logger.Info("generation complete",
		logging.Int("images", summary.Images),
		logging.Int("computed", summary.Computed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("unresolved", summary.Unresolved),
		logging.Int("failed", summary.Failed),
		logging.String("duration", FormatDuration(summary.Duration)),
	)
	return summary, nil
}

// plan resolves entry and decides whether it needs hashing. It reports true
// when the returned outcome's job should be dispatched to a worker.
func (p *Pipeline) plan(logger *slog.Logger, entry library.Entry) (outcome, bool) {
	cardID, err := p.Resolver.Resolve(entry.CardName, entry.SetName)
	if err != nil {
		logging.WarnWithContext(logger, "card not found in catalog", "catalog_miss",
			logging.String("card_name", entry.CardName),
			logging.String("set_name", entry.SetName),
			logging.String(logging.FieldImagePath, entry.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the set and card directory names against the catalog"),
			logging.String(logging.FieldImpact, "image skipped"),
		)
		return outcome{kind: outcomeUnresolved, job: job{entry: entry}}, false
	}

	var missing []*hashfunc.Identity
	for _, identity := range p.Functions {
		if !p.DB.HasResult(cardID, entry.Side, identity) {
			missing = append(missing, identity)
		}
	}
	j := job{entry: entry, cardID: cardID, missing: missing}
	if len(missing) == 0 {
		return outcome{kind: outcomeSkipped, job: j}, false
	}
	return outcome{kind: outcomeHashed, job: j}, true
}

// hash decodes the job's image and applies every missing identity.
func (p *Pipeline) hash(ctx context.Context, logger *slog.Logger, decoder imageio.Decoder, j job) outcome {
	o := outcome{kind: outcomeHashed, job: j}
	imgLogger := logger.With(
		logging.String(logging.FieldCardID, j.cardID),
		logging.String(logging.FieldSide, j.entry.Side),
		logging.String(logging.FieldImagePath, j.entry.Path),
	)
	if imgLogger.Enabled(ctx, slog.LevelDebug) {
		if digest, err := library.Digest(j.entry.Path); err == nil {
			imgLogger.Debug("hashing image", logging.String("digest", digest), logging.Int("missing", len(j.missing)))
		}
	}

	img, err := decoder.Decode(ctx, j.entry.Path)
	if err != nil {
		logging.WarnWithContext(imgLogger, "image decode failed", "image_decode_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "replace or remove the unreadable image"),
			logging.String(logging.FieldImpact, "image skipped"),
		)
		o.errs = append(o.errs, fmt.Errorf("%s: %w", j.entry.RelPath, err))
		return o
	}

	subject := similarity.Subject{CardID: j.cardID, Side: j.entry.Side}
	for _, identity := range j.missing {
		value, err := identity.Apply(j.entry.Path, img)
		if err != nil {
			logging.WarnWithContext(imgLogger, "hash computation failed", "hash_failed",
				logging.String(logging.FieldHashFunction, identity.ID()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the image; other hash functions still ran"),
				logging.String(logging.FieldImpact, "hash missing for this card side"),
			)
			o.errs = append(o.errs, err)
			continue
		}
		o.results = append(o.results, similarity.NewResult(identity, value, subject))
	}
	return o
}

func cardContext(e library.Entry) carddb.CardContext {
	return carddb.CardContext{Name: e.CardName, SetName: e.SetName, SideName: e.SideName}
}

func send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
