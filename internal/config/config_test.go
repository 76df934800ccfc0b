package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDB := filepath.Join(tempHome, ".local", "share", "magicid", "db.json")
	if cfg.Paths.DatabasePath != wantDB {
		t.Fatalf("unexpected database path: got %q want %q", cfg.Paths.DatabasePath, wantDB)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "magicid", "library") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if len(cfg.HashFunctions) != 0 {
		t.Fatalf("expected no configured hash functions, got %d", len(cfg.HashFunctions))
	}
	if cfg.Generation.Workers <= 0 || cfg.Comparison.Workers <= 0 {
		t.Fatalf("expected positive worker counts, got %d/%d", cfg.Generation.Workers, cfg.Comparison.Workers)
	}
	if cfg.Comparison.Top != 10 {
		t.Fatalf("expected top 10, got %d", cfg.Comparison.Top)
	}
	if cfg.Comparison.Width != 488 || cfg.Comparison.Height != 680 {
		t.Fatalf("unexpected reference size %dx%d", cfg.Comparison.Width, cfg.Comparison.Height)
	}
	if !cfg.Comparison.RecordHistory {
		t.Fatal("expected history recording enabled by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, filepath.Dir(cfg.Paths.DatabasePath), filepath.Dir(cfg.Paths.HistoryPath)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if got := cfg.LogFilePath(); got != filepath.Join(cfg.Paths.LogDir, "magicid.log") {
		t.Fatalf("unexpected log file path %q", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "magicid.toml")

	contents := `
[paths]
library_dir = "` + filepath.ToSlash(filepath.Join(tempDir, "cards")) + `"
database_path = "` + filepath.ToSlash(filepath.Join(tempDir, "db.json.zst")) + `"

[[hash_functions]]
name = "imagehash.phash"
hash_size = 10
kwargs = { hash_size = 10 }

[[hash_functions]]
name = "imagehash.whash"
hash_size = 8
args = [8, 64]

[comparison]
top = 3
rotate_degrees = -90
width = 0
height = 0

[logging]
format = " JSON "
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DatabasePath != filepath.Join(tempDir, "db.json.zst") {
		t.Fatalf("unexpected database path %q", cfg.Paths.DatabasePath)
	}
	if len(cfg.HashFunctions) != 2 {
		t.Fatalf("expected 2 hash functions, got %d", len(cfg.HashFunctions))
	}
	phash := cfg.HashFunctions[0]
	if phash.Name != "imagehash.phash" || phash.HashSize != 10 {
		t.Fatalf("unexpected first hash function %+v", phash)
	}
	if got, ok := phash.Kwargs["hash_size"].(int64); !ok || got != 10 {
		t.Fatalf("expected kwargs hash_size 10, got %#v", phash.Kwargs["hash_size"])
	}
	if len(phash.Args) != 0 {
		t.Fatalf("expected empty args, got %v", phash.Args)
	}
	if len(cfg.HashFunctions[1].Args) != 2 {
		t.Fatalf("expected whash args, got %v", cfg.HashFunctions[1].Args)
	}
	if cfg.HashFunctions[1].Kwargs == nil {
		t.Fatal("expected kwargs normalized to empty map")
	}
	if cfg.Comparison.Top != 3 {
		t.Fatalf("expected top 3, got %d", cfg.Comparison.Top)
	}
	if cfg.Comparison.RotateDegrees != 270 {
		t.Fatalf("expected rotation normalized to 270, got %d", cfg.Comparison.RotateDegrees)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
}

func TestEnvVarOverridesConfigFilePaths(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "magicid.toml")

	type payload struct {
		Paths struct {
			LibraryDir   string `toml:"library_dir"`
			DatabasePath string `toml:"database_path"`
			CatalogPath  string `toml:"catalog_path"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.Paths.LibraryDir = filepath.Join(tempDir, "file-library")
	custom.Paths.DatabasePath = filepath.Join(tempDir, "file-db.json")
	custom.Paths.CatalogPath = filepath.Join(tempDir, "file-catalog.json")

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("MAGICID_LIBRARY_DIR", filepath.Join(tempDir, "env-library"))
	t.Setenv("MAGICID_DATABASE_PATH", filepath.Join(tempDir, "env-db.json"))
	t.Setenv("MAGICID_CATALOG_PATH", filepath.Join(tempDir, "env-catalog.json"))

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempDir, "env-library") {
		t.Errorf("expected library dir from env, got %q", cfg.Paths.LibraryDir)
	}
	if cfg.Paths.DatabasePath != filepath.Join(tempDir, "env-db.json") {
		t.Errorf("expected database path from env, got %q", cfg.Paths.DatabasePath)
	}
	if cfg.Paths.CatalogPath != filepath.Join(tempDir, "env-catalog.json") {
		t.Errorf("expected catalog path from env, got %q", cfg.Paths.CatalogPath)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "imagehash.phash") {
		t.Fatalf("sample config missing hash function example: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DatabasePath, "magicid") {
		t.Fatalf("expected database path to contain magicid, got %q", cfg.Paths.DatabasePath)
	}
	if cfg.Comparison.Width != 488 || cfg.Comparison.Height != 680 {
		t.Fatalf("unexpected sample reference size %dx%d", cfg.Comparison.Width, cfg.Comparison.Height)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"rotation", func(c *config.Config) { c.Comparison.RotateDegrees = 45 }},
		{"negative width", func(c *config.Config) { c.Comparison.Width = -1 }},
		{"width without height", func(c *config.Config) { c.Comparison.Height = 0 }},
		{"unnamed hash function", func(c *config.Config) {
			c.HashFunctions = []config.HashFunction{{HashSize: 8}}
		}},
		{"negative hash size", func(c *config.Config) {
			c.HashFunctions = []config.HashFunction{{Name: "imagehash.dhash", HashSize: -1}}
		}},
		{"retention", func(c *config.Config) { c.History.Retention = -1 }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"database path", func(c *config.Config) { c.Paths.DatabasePath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
