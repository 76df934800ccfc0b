package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHashFunctions()
	c.normalizeGeneration()
	c.normalizeComparison()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	envOverrides := []struct {
		env    string
		target *string
	}{
		{"MAGICID_LIBRARY_DIR", &c.Paths.LibraryDir},
		{"MAGICID_DATABASE_PATH", &c.Paths.DatabasePath},
		{"MAGICID_CATALOG_PATH", &c.Paths.CatalogPath},
	}
	for _, override := range envOverrides {
		if value, ok := os.LookupEnv(override.env); ok && strings.TrimSpace(value) != "" {
			*override.target = strings.TrimSpace(value)
		}
	}

	fields := []struct {
		key      string
		target   *string
		fallback string
	}{
		{"paths.library_dir", &c.Paths.LibraryDir, defaultLibraryDir},
		{"paths.database_path", &c.Paths.DatabasePath, defaultDatabasePath},
		{"paths.catalog_path", &c.Paths.CatalogPath, defaultCatalogPath},
		{"paths.history_path", &c.Paths.HistoryPath, defaultHistoryPath},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.target) == "" {
			*field.target = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.target))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.target = expanded
	}
	return nil
}

func (c *Config) normalizeHashFunctions() {
	for i := range c.HashFunctions {
		fn := &c.HashFunctions[i]
		fn.Name = strings.TrimSpace(fn.Name)
		if fn.Args == nil {
			fn.Args = []any{}
		}
		if fn.Kwargs == nil {
			fn.Kwargs = map[string]any{}
		}
	}
}

func (c *Config) normalizeGeneration() {
	if c.Generation.Workers <= 0 {
		c.Generation.Workers = defaultWorkers()
	}
	if c.Generation.Workers > maxWorkers {
		c.Generation.Workers = maxWorkers
	}
	if c.Generation.ProgressBucket <= 0 {
		c.Generation.ProgressBucket = defaultProgressBucket
	}
}

func (c *Config) normalizeComparison() {
	if c.Comparison.Workers <= 0 {
		c.Comparison.Workers = defaultWorkers()
	}
	if c.Comparison.Workers > maxWorkers {
		c.Comparison.Workers = maxWorkers
	}
	if c.Comparison.Top <= 0 {
		c.Comparison.Top = defaultComparisonTop
	}
	c.Comparison.RotateDegrees %= 360
	if c.Comparison.RotateDegrees < 0 {
		c.Comparison.RotateDegrees += 360
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
