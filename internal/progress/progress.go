// Package progress renders a stderr progress bar while files are searched.
package progress

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for file processing. A nil Tracker is a no-op,
// so callers can hold one unconditionally.
type Tracker struct {
	bar *progressbar.ProgressBar
}

// New creates a tracker for total files, or nil when stderr is not a
// terminal (the bar would corrupt redirected diagnostics). A negative total
// renders a spinner.
func New(label string, total int) *Tracker {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	if total < 0 {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(20),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		return &Tracker{bar: bar}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t == nil {
		return
	}
	t.bar.Add(1)
}

// Finish completes the bar and clears it from stderr.
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	t.bar.Finish()
	t.bar.Clear()
}
