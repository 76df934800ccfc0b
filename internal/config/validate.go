package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateHashFunctions(); err != nil {
		return err
	}
	if err := c.validateComparison(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		return errors.New("paths.database_path must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	return nil
}

func (c *Config) validateHashFunctions() error {
	for i, fn := range c.HashFunctions {
		if fn.Name == "" {
			return fmt.Errorf("hash_functions[%d].name must be set", i)
		}
		if fn.HashSize < 0 {
			return fmt.Errorf("hash_functions[%d].hash_size must be >= 0", i)
		}
	}
	return nil
}

func (c *Config) validateComparison() error {
	if c.Comparison.RotateDegrees%90 != 0 {
		return fmt.Errorf("comparison.rotate_degrees must be a multiple of 90, got %d", c.Comparison.RotateDegrees)
	}
	if c.Comparison.Width < 0 || c.Comparison.Height < 0 {
		return errors.New("comparison.width and comparison.height must be >= 0")
	}
	if (c.Comparison.Width == 0) != (c.Comparison.Height == 0) {
		return errors.New("comparison.width and comparison.height must both be set or both be 0")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Retention < 0 {
		return errors.New("history.retention must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
