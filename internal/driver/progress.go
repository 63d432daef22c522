package driver

import (
	"github.com/schollz/progressbar/v3"
)

// ProgressReporter receives run progress callbacks. Implementations can
// display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	Start(totalFiles int)
	FileDone(path string)
	Done()
}

// NoOpProgress is used when progress reporting is disabled.
type NoOpProgress struct{}

func (NoOpProgress) Start(int)       {}
func (NoOpProgress) FileDone(string) {}
func (NoOpProgress) Done()           {}

// BarProgress renders a terminal progress bar for interactive runs.
type BarProgress struct {
	bar *progressbar.ProgressBar
}

func (p *BarProgress) Start(totalFiles int) {
	p.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("checking"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
}

func (p *BarProgress) FileDone(string) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *BarProgress) Done() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
