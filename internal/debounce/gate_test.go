package debounce

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSettledWithoutSignals(t *testing.T) {
	g := New(30*time.Second, 0)

	if !g.Settled(time.Now()) {
		t.Error("Settled() = false for a gate that never saw a change, want true")
	}
	if _, ok := g.LastChange(); ok {
		t.Error("LastChange() reported a change, want none")
	}
}

func TestSettledBoundary(t *testing.T) {
	const quiet = 10 * time.Second
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just before threshold", base.Add(quiet - time.Millisecond), false},
		{"exactly at threshold", base.Add(quiet), true},
		{"just after threshold", base.Add(quiet + time.Millisecond), true},
		{"immediately after change", base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(quiet, 4)
			g.Signal(base)

			if got := g.Settled(tt.now); got != tt.want {
				t.Errorf("Settled(%v) = %v, want %v", tt.now.Sub(base), got, tt.want)
			}
		})
	}
}

func TestSignalKeepsNewest(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := New(time.Second, 8)

	g.Signal(base.Add(5 * time.Second))
	g.Signal(base)
	g.Signal(base.Add(2 * time.Second))

	last, ok := g.LastChange()
	if !ok {
		t.Fatal("LastChange() reported no change")
	}
	if want := base.Add(5 * time.Second); !last.Equal(want) {
		t.Errorf("LastChange() = %v, want %v", last, want)
	}
}

func TestSignalNeverBlocksWhenQueueFull(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := New(time.Second, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			g.Signal(base.Add(time.Duration(i) * time.Millisecond))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Signal blocked with a full queue")
	}

	last, _ := g.LastChange()
	if want := base.Add(999 * time.Millisecond); !last.Equal(want) {
		t.Errorf("LastChange() = %v, want %v", last, want)
	}
}

func TestRemaining(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := New(10*time.Second, 0)

	if got := g.Remaining(base); got != 0 {
		t.Errorf("Remaining() before any change = %v, want 0", got)
	}

	g.Signal(base)
	if got := g.Remaining(base.Add(4 * time.Second)); got != 6*time.Second {
		t.Errorf("Remaining() = %v, want 6s", got)
	}
	if got := g.Remaining(base.Add(time.Minute)); got != 0 {
		t.Errorf("Remaining() after quiet period = %v, want 0", got)
	}
}

func TestRunConsumesSignals(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := New(time.Second, 16)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.Run(ctx)
	}()

	g.Signal(base)

	deadline := time.Now().Add(2 * time.Second)
	for len(g.events) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	wg.Wait()

	if g.Settled(base.Add(500 * time.Millisecond)) {
		t.Error("Settled() = true half way through the quiet period, want false")
	}
}
