package admission

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

func TestAdmitUpToLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
	}{
		{"zero", 0},
		{"one", 1},
		{"hundred", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.limit, 0)
			for i := 0; i < tt.limit; i++ {
				if err := g.Admit(); err != nil {
					t.Fatalf("call %d: unexpected denial: %v", i+1, err)
				}
			}
			err := g.Admit()
			if !errors.Is(err, model.ErrAdmissionDenied) {
				t.Fatalf("call %d: expected ErrAdmissionDenied, got %v", tt.limit+1, err)
			}
			if got := g.Remaining(); got != 0 {
				t.Errorf("Remaining() = %d, want 0", got)
			}
		})
	}
}

func TestDeniedCallsDoNotCount(t *testing.T) {
	g := New(2, 0)
	_ = g.Admit()
	_ = g.Admit()
	for i := 0; i < 5; i++ {
		_ = g.Admit()
	}
	g.mu.Lock()
	count := g.count
	g.mu.Unlock()
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestWindowReset(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := New(1, time.Minute)
	g.now = func() time.Time { return now }
	g.windowStart = now

	if err := g.Admit(); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if err := g.Admit(); !errors.Is(err, model.ErrAdmissionDenied) {
		t.Fatalf("expected denial within window, got %v", err)
	}

	now = now.Add(59 * time.Second)
	if err := g.Admit(); !errors.Is(err, model.ErrAdmissionDenied) {
		t.Fatalf("expected denial before window end, got %v", err)
	}

	now = now.Add(time.Second)
	if got := g.Remaining(); got != 1 {
		t.Errorf("Remaining() after reset = %d, want 1", got)
	}
	if err := g.Admit(); err != nil {
		t.Fatalf("expected admit after window reset, got %v", err)
	}
}

func TestZeroWindowNeverResets(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := New(1, 0)
	g.now = func() time.Time { return now }

	_ = g.Admit()
	now = now.Add(24 * 365 * time.Hour)
	if err := g.Admit(); !errors.Is(err, model.ErrAdmissionDenied) {
		t.Fatalf("expected denial, got %v", err)
	}
}

func TestConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	const limit = 50
	g := New(limit, 0)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Admit() == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != limit {
		t.Errorf("admitted %d, want exactly %d", got, limit)
	}
}
