package carddb

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/logging"
)

// compressedSuffix selects zstd framing for the database file.
const compressedSuffix = ".zst"

// Both are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Database is an open card database. Methods are safe for concurrent use;
// cross-process writers coordinate through Lock.
type Database struct {
	path     string
	registry *hashfunc.Registry
	logger   *slog.Logger

	mu         sync.RWMutex
	cards      map[string]*Card
	functions  []hashfunc.Record
	identities map[string]*hashfunc.Identity
}

// Option customizes Open.
type Option func(*Database)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(db *Database) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// Open loads the database at path, or starts an empty one when the file
// does not exist. Registry records are resolved through reg; records that
// do not resolve are kept and reported by Functions.
func Open(path string, reg *hashfunc.Registry, opts ...Option) (*Database, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if reg == nil {
		reg = hashfunc.DefaultRegistry()
	}
	db := &Database{
		path:       path,
		registry:   reg,
		logger:     logging.NewNop(),
		cards:      make(map[string]*Card),
		functions:  []hashfunc.Record{},
		identities: make(map[string]*hashfunc.Identity),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.logger = logging.NewComponentLogger(db.logger, "carddb")

	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *Database) Path() string { return db.path }

func (db *Database) compressed() bool {
	return strings.HasSuffix(db.path, compressedSuffix)
}

func (db *Database) load() error {
	data, err := os.ReadFile(db.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			db.logger.Debug("starting empty card database", logging.String("database_path", db.path))
			return nil
		}
		return fmt.Errorf("read card database: %w", err)
	}
	if db.compressed() && len(data) > 0 {
		data, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
	}
	if len(data) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, db.path, err)
	}
	for id, card := range doc.Cards {
		if card == nil {
			delete(doc.Cards, id)
			continue
		}
		if card.Sides == nil {
			card.Sides = make(map[string]*Side)
		}
		for label, side := range card.Sides {
			if side == nil {
				delete(card.Sides, label)
			}
		}
	}
	if doc.Cards != nil {
		db.cards = doc.Cards
	}

	seen := make(map[string]struct{}, len(doc.HashFunctions))
	for _, rec := range doc.HashFunctions {
		if rec.ID != "" {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
		}
		db.functions = append(db.functions, rec)
		identity, err := hashfunc.Deserialize(rec, db.registry)
		if err != nil {
			logging.WarnWithContext(db.logger, "hash function record not resolvable", "carddb_function_unresolved",
				logging.String("function_name", rec.Name),
				logging.String("function_id", rec.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "register the algorithm or prune the database"),
				logging.String(logging.FieldImpact, "record is kept but its hashes cannot be compared"),
			)
			continue
		}
		db.identities[identity.ID()] = identity
	}

	db.logger.Debug("loaded card database",
		logging.String("database_path", db.path),
		logging.Int("cards", len(db.cards)),
		logging.Int("hash_functions", len(db.functions)),
	)
	return nil
}

// Save writes the database atomically. Output is deterministic: map keys are
// sorted and slices keep insertion order.
func (db *Database) Save() error {
	db.mu.RLock()
	data, err := json.MarshalIndent(document{Cards: db.cards, HashFunctions: db.functions}, "", "  ")
	db.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal card database: %w", err)
	}
	if db.compressed() {
		data = zstdEncoder.EncodeAll(data, nil)
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	tmpPath := db.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, db.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	db.logger.Debug("saved card database", logging.String("database_path", db.path), logging.Int("bytes", len(data)))
	return nil
}

// Lock takes the exclusive writer lock for this database file. It fails
// with ErrLocked when another writer holds it. The returned function
// releases the lock.
func (db *Database) Lock() (func() error, error) {
	lockPath := db.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire database lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
	return lock.Unlock, nil
}
