package comparison

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/carddb"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/logging"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
)

// Pipeline ranks database candidates against a reference.
type Pipeline struct {
	DB *carddb.Database
	// Functions selects the identities to compare with. Empty uses every
	// identity registered in DB.
	Functions []*hashfunc.Identity
	Workers   int
	Logger    *slog.Logger
}

// Rank hashes img under every identity and ranks the database against it.
// ref names the reference in errors and in the ranking.
func (p *Pipeline) Rank(ctx context.Context, ref string, img image.Image) (*Ranking, error) {
	functions, err := p.functions()
	if err != nil {
		return nil, err
	}
	subject := similarity.Subject{CardID: ref, Side: similarity.SideReference}
	references := make([]similarity.Result, 0, len(functions))
	for _, identity := range functions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := identity.Apply(ref, img)
		if err != nil {
			return nil, err
		}
		references = append(references, similarity.NewResult(identity, value, subject))
	}
	return p.RankResults(ctx, references)
}

// RankResults ranks the database against precomputed reference results, one
// per identity.
func (p *Pipeline) RankResults(ctx context.Context, references []similarity.Result) (*Ranking, error) {
	if p.DB == nil {
		return nil, errors.New("comparison: database is required")
	}
	if len(references) == 0 {
		return nil, errors.New("comparison: no reference hashes")
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "comparison")

	ranking := &Ranking{Reference: references[0].Subject.CardID}
	seen := make(map[string]struct{}, len(references))
	for _, ref := range references {
		id := ref.Identity.ID()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: reference %s", similarity.ErrSameIdentity, ref.Identity)
		}
		seen[id] = struct{}{}
		ranking.FunctionIDs = append(ranking.FunctionIDs, id)
	}

	subjects := p.DB.Subjects()
	ranking.Candidates = len(subjects)
	problems := make(map[similarity.Subject][]error)
	deltas := make(map[similarity.Subject][]*similarity.Delta, len(subjects))

	for _, ref := range references {
		batch, err := p.normalizedBatch(ctx, ref, problems)
		if err != nil {
			return nil, err
		}
		for _, d := range batch {
			deltas[d.A] = append(deltas[d.A], d)
		}
		logger.Debug("identity batch normalized",
			logging.String(logging.FieldHashFunction, ref.Identity.ID()),
			logging.String("function_name", ref.Identity.Name()),
			logging.Int("candidates", len(batch)),
		)
	}

	for _, subject := range subjects {
		if _, bad := problems[subject]; bad {
			continue
		}
		sum, err := p.fold(subject, references, deltas[subject])
		if err != nil {
			problems[subject] = append(problems[subject], err)
			continue
		}
		ranking.Matches = append(ranking.Matches, p.match(sum))
	}
	slices.SortFunc(ranking.Matches, func(a, b Match) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return a.Subject.Compare(b.Subject)
	})

	for subject, errs := range problems {
		ranking.Incomplete = append(ranking.Incomplete, CandidateError{Subject: subject, Err: errors.Join(errs...)})
	}
	slices.SortFunc(ranking.Incomplete, func(a, b CandidateError) int { return a.Subject.Compare(b.Subject) })

	attrs := []logging.Attr{
		logging.String("reference", ranking.Reference),
		logging.Int("candidates", ranking.Candidates),
		logging.Int("ranked", len(ranking.Matches)),
		logging.Int("incomplete", len(ranking.Incomplete)),
	}
	if best, ok := ranking.Best(); ok {
		attrs = append(attrs,
			logging.String(logging.FieldCardID, best.Subject.CardID),
			logging.String("card_name", best.CardName),
			logging.Float64("score", best.Score),
		)
	}
	logger.Info("ranking complete", logging.Args(attrs...)...)
	if len(ranking.Incomplete) > 0 {
		logging.WarnWithContext(logger, "candidates left out of ranking", "comparison_incomplete",
			logging.Int("incomplete", len(ranking.Incomplete)),
			logging.Error(ranking.Err()),
			logging.String(logging.FieldErrorHint, "run generate to fill in missing hashes"),
			logging.String(logging.FieldImpact, "those card sides cannot be matched"),
		)
	}
	return ranking, nil
}

// normalizedBatch differences every stored result of ref's identity against
// ref in parallel, then normalizes the complete batch. Candidates that fail
// are recorded in problems.
func (p *Pipeline) normalizedBatch(ctx context.Context, ref similarity.Result, problems map[similarity.Subject][]error) ([]*similarity.Delta, error) {
	candidates, loadErr := p.DB.ResultsFor(ref.Identity)
	if loadErr != nil {
		var mErr *multierror.Error
		if !errors.As(loadErr, &mErr) {
			return nil, loadErr
		}
		for _, err := range mErr.Errors {
			var entryErr *carddb.EntryError
			if !errors.As(err, &entryErr) {
				return nil, err
			}
			subject := similarity.Subject{CardID: entryErr.CardID, Side: entryErr.Side}
			problems[subject] = append(problems[subject], err)
		}
	}

	chunks := chunk(candidates, max(p.Workers, 1))
	deltaChunks := make([][]*similarity.Delta, len(chunks))
	errChunks := make([]error, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			deltaChunks[i], errChunks[i] = similarity.DifferenceBatch(ref, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var batch []*similarity.Delta
	for i := range chunks {
		batch = append(batch, deltaChunks[i]...)
		var mErr *multierror.Error
		if !errors.As(errChunks[i], &mErr) {
			continue
		}
		for _, err := range mErr.Errors {
			var subjectErr *similarity.SubjectError
			if errors.As(err, &subjectErr) {
				problems[subjectErr.Subject] = append(problems[subjectErr.Subject], subjectErr.Err)
			}
		}
	}
	if err := similarity.NormalizeBatch(batch); err != nil {
		return nil, fmt.Errorf("normalize %s: %w", ref.Identity, err)
	}
	return batch, nil
}

// fold sums the normalized deltas of subject, one per reference identity.
func (p *Pipeline) fold(subject similarity.Subject, references []similarity.Result, deltas []*similarity.Delta) (*similarity.MultiDelta, error) {
	var sum *similarity.MultiDelta
	var missing []error
	for _, ref := range references {
		i := slices.IndexFunc(deltas, func(d *similarity.Delta) bool { return d.Identity.Equal(ref.Identity) })
		if i < 0 {
			if _, err := p.DB.ResultFor(subject.CardID, subject.Side, ref.Identity.ID()); err != nil {
				missing = append(missing, err)
			} else {
				missing = append(missing, fmt.Errorf("%w: no delta for %s", carddb.ErrNotFound, ref.Identity))
			}
			continue
		}
		if sum == nil {
			var err error
			if sum, err = similarity.NewMultiDelta(deltas[i]); err != nil {
				return nil, err
			}
			continue
		}
		if err := sum.Add(deltas[i]); err != nil {
			return nil, err
		}
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	return sum, nil
}

func (p *Pipeline) match(sum *similarity.MultiDelta) Match {
	m := Match{Subject: sum.A, Score: sum.Sum(), Components: sum.Components()}
	if card, ok := p.DB.Card(sum.A.CardID); ok {
		m.CardName = card.Name
		m.SetName = card.SetName
		if side, ok := card.Sides[sum.A.Side]; ok {
			m.SideName = side.Name
		}
	}
	return m
}

func (p *Pipeline) functions() ([]*hashfunc.Identity, error) {
	if p.DB == nil {
		return nil, errors.New("comparison: database is required")
	}
	if len(p.Functions) > 0 {
		return p.Functions, nil
	}
	functions, err := p.DB.Functions()
	if err != nil {
		logger := p.Logger
		if logger == nil {
			logger = logging.NewNop()
		}
		logging.WarnWithContext(logger, "unresolvable hash functions in database", "comparison_functions_unresolved",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run db prune to drop unknown hash functions"),
			logging.String(logging.FieldImpact, "those hash functions are ignored"),
		)
	}
	if len(functions) == 0 {
		return nil, errors.New("comparison: database has no usable hash functions")
	}
	return functions, nil
}

// chunk splits items into at most n contiguous parts.
func chunk[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}
	size := (len(items) + n - 1) / n
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
