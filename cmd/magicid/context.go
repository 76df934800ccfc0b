package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/carddb"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/config"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/history"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// session bundles what most commands need.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (c *commandContext) session() (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &session{cfg: cfg, logger: logger}, nil
}

func (s *session) openDatabase() (*carddb.Database, error) {
	db, err := carddb.Open(s.cfg.Paths.DatabasePath, hashfunc.DefaultRegistry(),
		carddb.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("open card database: %w", err)
	}
	return db, nil
}

func (s *session) configuredFunctions() ([]*hashfunc.Identity, error) {
	functions, err := hashfunc.FromSpecs(hashfunc.DefaultRegistry(), s.cfg.HashFunctions)
	if err != nil {
		return nil, fmt.Errorf("configure hash functions: %w", err)
	}
	return functions, nil
}

func (s *session) withHistory(fn func(*history.Store) error) error {
	store, err := history.Open(s.cfg.Paths.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
