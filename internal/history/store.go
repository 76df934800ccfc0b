package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/comparison"
)

var (
	// ErrNotFound is returned when no run matches an id.
	ErrNotFound = errors.New("comparison run not found")
	// ErrAmbiguous is returned when an id prefix matches several runs.
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// Run is one recorded comparison.
type Run struct {
	ID          string    `json:"id"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
	FunctionIDs []string  `json:"function_ids"`
	Candidates  int       `json:"candidates"`
	Incomplete  int       `json:"incomplete"`
	Matches     []Match   `json:"matches,omitempty"`
}

// Match is one ranked candidate of a run.
type Match struct {
	Rank     int     `json:"rank"`
	CardID   string  `json:"card_id"`
	Side     string  `json:"side"`
	CardName string  `json:"card_name,omitempty"`
	SetName  string  `json:"set_name,omitempty"`
	Score    float64 `json:"score"`
}

// FromRanking converts the top limit matches of r into a Run. limit <= 0
// keeps every match.
func FromRanking(r *comparison.Ranking, limit int) *Run {
	run := &Run{
		Reference:   r.Reference,
		FunctionIDs: append([]string(nil), r.FunctionIDs...),
		Candidates:  r.Candidates,
		Incomplete:  len(r.Incomplete),
	}
	for i, m := range r.Top(limit) {
		run.Matches = append(run.Matches, Match{
			Rank:     i + 1,
			CardID:   m.Subject.CardID,
			Side:     m.Subject.Side,
			CardName: m.CardName,
			SetName:  m.SetName,
			Score:    m.Score,
		})
	}
	return run
}

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	// foreign_keys is per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts run with its matches. An empty ID is assigned a new UUID
// and a zero CreatedAt the current time.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	functionIDs, err := json.Marshal(nonNil(run.FunctionIDs))
	if err != nil {
		return fmt.Errorf("marshal function ids: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, reference, created_at, function_ids, candidates, incomplete)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Reference,
		run.CreatedAt.UTC().Format(timeLayout),
		string(functionIDs),
		run.Candidates,
		run.Incomplete,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, m := range run.Matches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_matches (run_id, rank, card_id, side, card_name, set_name, score)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, m.Rank, m.CardID, m.Side, nullableString(m.CardName), nullableString(m.SetName), m.Score,
		); err != nil {
			return fmt.Errorf("insert match %d: %w", m.Rank, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// timeLayout has a fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, reference, created_at, function_ids, candidates, incomplete"

// List returns the newest runs first, without their matches. limit <= 0
// lists every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns the run whose id equals or starts with id, with its matches.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id LIMIT 2`,
		id, len(id), id,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		found = append(found, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
	default:
		if found[0].ID != id {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
		}
	}

	run := found[0]
	matches, err := s.db.QueryContext(ctx,
		`SELECT rank, card_id, side, card_name, set_name, score FROM run_matches WHERE run_id = ? ORDER BY rank`,
		run.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get matches: %w", err)
	}
	defer matches.Close()
	for matches.Next() {
		var (
			m                 Match
			cardName, setName sql.NullString
		)
		if err := matches.Scan(&m.Rank, &m.CardID, &m.Side, &cardName, &setName, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.CardName = cardName.String
		m.SetName = setName.String
		run.Matches = append(run.Matches, m)
	}
	if err := matches.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return run, nil
}

// Prune deletes all but the newest keep runs and reports how many were
// removed. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY created_at DESC, id LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		createdAt   string
		functionIDs string
	)
	if err := row.Scan(&run.ID, &run.Reference, &createdAt, &functionIDs, &run.Candidates, &run.Incomplete); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = ts
	if err := json.Unmarshal([]byte(functionIDs), &run.FunctionIDs); err != nil {
		return nil, fmt.Errorf("parse function ids: %w", err)
	}
	return &run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
