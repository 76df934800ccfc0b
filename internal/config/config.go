package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the locations of the card library and the files magicid owns.
type Paths struct {
	LibraryDir   string `toml:"library_dir"`
	DatabasePath string `toml:"database_path"`
	CatalogPath  string `toml:"catalog_path"`
	HistoryPath  string `toml:"history_path"`
	LogDir       string `toml:"log_dir"`
}

// HashFunction configures one hash algorithm and its parameters. The same
// algorithm may appear several times with different parameters; every entry
// becomes its own hash function identity.
type HashFunction struct {
	Name     string         `toml:"name"`
	HashSize int            `toml:"hash_size"`
	Args     []any          `toml:"args"`
	Kwargs   map[string]any `toml:"kwargs"`
}

// Generation contains settings for building the hash database.
type Generation struct {
	Workers int `toml:"workers"`
	// ProgressBucket is the percentage step between progress log lines.
	ProgressBucket float64 `toml:"progress_bucket"`
}

// Comparison contains settings for ranking a reference image.
type Comparison struct {
	Workers int `toml:"workers"`
	Top     int `toml:"top"`
	// RotateDegrees rotates the reference counter-clockwise before hashing.
	// Only multiples of 90 are accepted.
	RotateDegrees int  `toml:"rotate_degrees"`
	Width         int  `toml:"width"`
	Height        int  `toml:"height"`
	RecordHistory bool `toml:"record_history"`
}

// History contains settings for the comparison history store.
type History struct {
	// Retention is the number of most recent runs kept; 0 keeps everything.
	Retention int `toml:"retention"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for magicid.
//
// Configuration sections by subsystem:
//   - Paths: card library, hash database, catalog, history, and logs
//   - HashFunctions: the hash algorithms and parameters to compute
//   - Generation: worker count and progress reporting for database builds
//   - Comparison: worker count, result count, and reference preparation
//   - History: retention of recorded comparison runs
//   - Logging: log format and level
type Config struct {
	Paths         Paths          `toml:"paths"`
	HashFunctions []HashFunction `toml:"hash_functions"`
	Generation    Generation     `toml:"generation"`
	Comparison    Comparison     `toml:"comparison"`
	History       History        `toml:"history"`
	Logging       Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/magicid/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("magicid.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories magicid writes into. The library
// directory is only read, so it is left alone.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.LogDir,
		filepath.Dir(c.Paths.DatabasePath),
		filepath.Dir(c.Paths.HistoryPath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the path of the persistent CLI log file.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "magicid.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
