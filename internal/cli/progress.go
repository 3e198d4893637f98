package cli

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/imyousuf/rubyagent/internal/analyzer"
)

// progressReporter draws one bar per analysis pass. tick is safe for
// concurrent use by pass 2 workers.
type progressReporter struct {
	out io.Writer

	mu    sync.Mutex
	total int
	phase analyzer.Phase
	bar   *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out}
}

func (p *progressReporter) start(files []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
	p.total = len(files)
}

func (p *progressReporter) tick(phase analyzer.Phase, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || phase != p.phase {
		p.finishLocked()
		p.phase = phase
		p.bar = newProgressBar(p.out, phaseLabel(phase), p.total)
	}
	_ = p.bar.Add(1)
}

func (p *progressReporter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressReporter) finishLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	_ = p.bar.Clear()
	p.bar = nil
}

func phaseLabel(phase analyzer.Phase) string {
	switch phase {
	case analyzer.PhaseRegistry:
		return "Indexing classes"
	case analyzer.PhaseSummary:
		return "Summarizing"
	default:
		return phase.String()
	}
}

func newProgressBar(out io.Writer, label string, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
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
}
