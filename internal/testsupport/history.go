package testsupport

import (
	"testing"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/config"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/history"
)

// MustOpenHistory opens the history store configured for cfg and closes it
// when the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.Paths.HistoryPath)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
