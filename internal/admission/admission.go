// Package admission gates externally reachable operations against a single
// process-wide budget. The gate is not per user: every caller draws from the
// same counter.
package admission

import (
	"fmt"
	"sync"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// Gate admits at most Limit operations per window. A zero window means the
// counter never resets for the lifetime of the gate.
type Gate struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// New creates a gate. A limit of zero or less denies everything.
func New(limit int, window time.Duration) *Gate {
	return &Gate{
		limit:       limit,
		window:      window,
		now:         time.Now,
		windowStart: time.Now(),
	}
}

// Admit increments the counter if it is below the limit. Otherwise it
// returns model.ErrAdmissionDenied and leaves the counter unchanged.
func (g *Gate) Admit() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollWindow()
	if g.count >= g.limit {
		return fmt.Errorf("%w: %d of %d requests used", model.ErrAdmissionDenied, g.count, g.limit)
	}
	g.count++
	return nil
}

// Remaining reports how many operations can still be admitted in the current window.
func (g *Gate) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollWindow()
	if g.count >= g.limit {
		return 0
	}
	return g.limit - g.count
}

// Limit returns the configured ceiling.
func (g *Gate) Limit() int {
	return g.limit
}

func (g *Gate) rollWindow() {
	if g.window <= 0 {
		return
	}
	now := g.now()
	if now.Sub(g.windowStart) >= g.window {
		g.count = 0
		g.windowStart = now
	}
}
