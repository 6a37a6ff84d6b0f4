package chrono

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestServiceFiresRoughlyOnPeriod(t *testing.T) {
	s := NewService()
	defer s.Close()

	var count atomic.Int64
	_, cancel := s.Register(10*time.Millisecond, func(time.Time) {
		count.Add(1)
	})
	defer cancel()

	time.Sleep(105 * time.Millisecond)
	n := count.Load()
	if n < 8 || n > 13 {
		t.Fatalf("expected roughly 10 fires in 105ms at 10ms period, got %d", n)
	}
}

func TestCancelStopsFurtherFires(t *testing.T) {
	s := NewService()
	defer s.Close()

	var count atomic.Int64
	_, cancel := s.Register(5*time.Millisecond, func(time.Time) {
		count.Add(1)
	})
	time.Sleep(20 * time.Millisecond)
	cancel()
	seen := count.Load()
	time.Sleep(30 * time.Millisecond)
	if count.Load() != seen {
		t.Fatalf("expected no further fires after cancel: before=%d after=%d", seen, count.Load())
	}
}

func TestCloseStopsEverything(t *testing.T) {
	s := NewService()
	var count atomic.Int64
	s.Register(5*time.Millisecond, func(time.Time) { count.Add(1) })
	time.Sleep(15 * time.Millisecond)
	s.Close()
	seen := count.Load()
	time.Sleep(20 * time.Millisecond)
	if count.Load() != seen {
		t.Fatalf("expected no fires after Close: before=%d after=%d", seen, count.Load())
	}
	if _, cancel := s.Register(time.Millisecond, func(time.Time) {}); cancel == nil {
		t.Fatal("Register after Close should still return a non-nil no-op cancel")
	}
}
