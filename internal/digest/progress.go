package digest

import (
	"sync"

	"aidigest/internal/core"
)

// Status is the coarse state of one digest run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusFetching  Status = "fetching"
	StatusEnriching Status = "enriching"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// Progress tracks one digest run. Each run owns its own Progress; callers
// poll it through Snapshot. All methods are safe on a nil receiver.
type Progress struct {
	mu            sync.Mutex
	status        Status
	current       int
	total         int
	currentSource string
	errors        []core.FeedError
}

// ProgressSnapshot is a point-in-time copy of a Progress.
type ProgressSnapshot struct {
	Status        Status           `json:"status"`
	Current       int              `json:"current"`
	Total         int              `json:"total"`
	CurrentSource string           `json:"current_source"`
	Errors        []core.FeedError `json:"errors"`
}

// NewProgress returns an idle progress record.
func NewProgress() *Progress {
	return &Progress{status: StatusIdle}
}

// Snapshot returns a copy safe to hand to another goroutine.
func (p *Progress) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{Status: StatusIdle, Errors: []core.FeedError{}}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	errs := make([]core.FeedError, len(p.errors))
	copy(errs, p.errors)
	return ProgressSnapshot{
		Status:        p.status,
		Current:       p.current,
		Total:         p.total,
		CurrentSource: p.currentSource,
		Errors:        errs,
	}
}

func (p *Progress) update(fn func(p *Progress)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	fn(p)
	p.mu.Unlock()
}

func (p *Progress) start(total int) {
	p.update(func(p *Progress) {
		p.status = StatusFetching
		p.total = total
		p.current = 0
		p.currentSource = ""
		p.errors = nil
	})
}

func (p *Progress) fetching(source string) {
	p.update(func(p *Progress) { p.currentSource = source })
}

func (p *Progress) finished(ferr *core.FeedError) {
	p.update(func(p *Progress) {
		p.current++
		if ferr != nil {
			p.errors = append(p.errors, *ferr)
		}
	})
}

func (p *Progress) enriching() {
	p.update(func(p *Progress) {
		p.status = StatusEnriching
		p.currentSource = ""
	})
}

func (p *Progress) done() {
	p.update(func(p *Progress) { p.status = StatusDone })
}

// Fail marks the run as failed. It is exported for job runners that abort
// before generation starts.
func (p *Progress) Fail() {
	p.update(func(p *Progress) { p.status = StatusFailed })
}
