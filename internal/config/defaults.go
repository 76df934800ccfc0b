package config

import "runtime"

const (
	defaultLibraryDir       = "~/magicid/library"
	defaultDatabasePath     = "~/.local/share/magicid/db.json"
	defaultCatalogPath      = "~/magicid/oracle-cards.json"
	defaultHistoryPath      = "~/.local/share/magicid/history.db"
	defaultLogDir           = "~/.local/share/magicid/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultComparisonTop    = 10
	defaultReferenceWidth   = 488
	defaultReferenceHeight  = 680
	defaultProgressBucket   = 5
	maxWorkers              = 64
	defaultHistoryRetention = 500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	workers := defaultWorkers()
	return Config{
		Paths: Paths{
			LibraryDir:   defaultLibraryDir,
			DatabasePath: defaultDatabasePath,
			CatalogPath:  defaultCatalogPath,
			HistoryPath:  defaultHistoryPath,
			LogDir:       defaultLogDir,
		},
		Generation: Generation{
			Workers:        workers,
			ProgressBucket: defaultProgressBucket,
		},
		Comparison: Comparison{
			Workers:       workers,
			Top:           defaultComparisonTop,
			Width:         defaultReferenceWidth,
			Height:        defaultReferenceHeight,
			RecordHistory: true,
		},
		History: History{
			Retention: defaultHistoryRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}
