package indexer

import (
	"fmt"
	"time"

	"github.com/dshills/fitscat/pkg/types"
)

// Progress is a snapshot of a running index
type Progress struct {
	Total     int
	Processed int
	Created   int
	Updated   int
	Failed    int
	Elapsed   time.Duration
	ETA       time.Duration
}

// Percent returns the completed share in the range [0, 100]
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Processed) * 100 / float64(p.Total)
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d files (%.1f%%), %d created, %d updated, %d failed, elapsed %s, ETA %s",
		p.Processed, p.Total, p.Percent(), p.Created, p.Updated, p.Failed,
		p.Elapsed.Round(time.Second), p.ETA.Round(time.Second))
}

// progressTracker counts finished files and emits a Progress every `every`
// files and once at completion. Callers serialize access.
type progressTracker struct {
	total   int
	every   int
	report  func(Progress)
	start   time.Time
	now     func() time.Time
	current Progress
	lastETA time.Duration
	hasETA  bool
}

func newProgressTracker(total, every int, report func(Progress), now func() time.Time) *progressTracker {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	if now == nil {
		now = time.Now
	}
	return &progressTracker{
		total:   total,
		every:   every,
		report:  report,
		start:   now(),
		now:     now,
		current: Progress{Total: total},
	}
}

// add records one finished file
func (p *progressTracker) add(outcome types.Outcome) {
	p.current.Processed++
	switch {
	case outcome == types.OutcomeCreated:
		p.current.Created++
	case outcome == types.OutcomeUpdated:
		p.current.Updated++
	case outcome.IsError():
		p.current.Failed++
	}

	if p.current.Processed%p.every == 0 || p.current.Processed == p.total {
		p.emit()
	}
}

func (p *progressTracker) emit() {
	p.current.Elapsed = p.now().Sub(p.start)
	p.current.ETA = p.estimate()
	if p.report != nil {
		p.report(p.current)
	}
}

// estimate extrapolates the mean time per file over the remaining files.
// The result never grows between reports and never goes below zero.
func (p *progressTracker) estimate() time.Duration {
	remaining := p.total - p.current.Processed
	if remaining <= 0 || p.current.Processed == 0 {
		p.lastETA, p.hasETA = 0, true
		return 0
	}

	perFile := p.current.Elapsed / time.Duration(p.current.Processed)
	eta := perFile * time.Duration(remaining)
	if eta < 0 {
		eta = 0
	}
	if p.hasETA && eta > p.lastETA {
		eta = p.lastETA
	}
	p.lastETA, p.hasETA = eta, true
	return eta
}
