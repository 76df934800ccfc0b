package generation

import (
	"fmt"
	"time"
)

// Progress is a snapshot of a running generation.
type Progress struct {
	Processed int
	Total     int
	Elapsed   time.Duration
	// Remaining is projected from the elapsed time and the fraction done.
	// It is zero until the first image completes.
	Remaining time.Duration
}

// ProgressFunc receives progress snapshots from the writer goroutine.
type ProgressFunc func(Progress)

// Fraction returns the completed fraction in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Processed) / float64(p.Total)
}

// Percent returns the completed percentage.
func (p Progress) Percent() float64 {
	return p.Fraction() * 100
}

func newProgress(processed, total int, elapsed time.Duration) Progress {
	p := Progress{Processed: processed, Total: total, Elapsed: elapsed}
	if fraction := p.Fraction(); fraction > 0 {
		p.Remaining = time.Duration(float64(elapsed)/fraction) - elapsed
	}
	return p
}

// FormatDuration renders d as compact days, hours, minutes and seconds,
// omitting leading zero units: "1d2h3m4s", "5m0s", "42s".
func FormatDuration(d time.Duration) string {
	seconds := max(int64(d/time.Second), 0)
	days, seconds := seconds/86400, seconds%86400
	hours, seconds := seconds/3600, seconds%3600
	minutes, seconds := seconds/60, seconds%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh%dm%ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
