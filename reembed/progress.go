package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progress draws a single self-overwriting status line while products are
// embedded. Writing to io.Discard turns it off.
type progress struct {
	mu       sync.Mutex
	w        io.Writer
	total    int
	every    int
	embedded int
	skipped  int
	drawnAt  int
	started  time.Time
}

func newProgress(w io.Writer, total, every int) *progress {
	if w == nil {
		w = io.Discard
	}
	return &progress{w: w, total: total, every: max(every, 1), started: time.Now()}
}

// batch accounts for one finished batch and redraws the line every
// p.every products.
func (p *progress) batch(embedded, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.embedded += embedded
	p.skipped += skipped
	if p.seen()-p.drawnAt >= p.every {
		p.draw()
	}
}

// done draws the final state and ends the line.
func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *progress) seen() int {
	return min(p.embedded+p.skipped, p.total)
}

// eta extrapolates the remaining time from the average rate so far.
func (p *progress) eta() time.Duration {
	seen := p.seen()
	if seen == 0 || seen >= p.total {
		return 0
	}
	perItem := time.Since(p.started) / time.Duration(seen)
	return (perItem * time.Duration(p.total-seen)).Round(time.Second)
}

func (p *progress) draw() {
	seen := p.seen()
	pct := 100.0
	if p.total > 0 {
		pct = float64(seen) * 100 / float64(p.total)
	}
	fmt.Fprintf(p.w, "\rembedding %d/%d (%.0f%%) embedded=%d skipped=%d eta=%s",
		seen, p.total, pct, p.embedded, p.skipped, p.eta())
	p.drawnAt = seen
}
