package dsl_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/webitel/reactor-plant/internal/dsl"
	"github.com/webitel/reactor-plant/internal/plant"
)

type Ping struct{ N int }
type Pong struct{ N int }

func newPlant(t *testing.T) *plant.Plant {
	t.Helper()
	return plant.New(plant.Config{DefaultPoolConcurrency: 2})
}

func TestBasicTrigger(t *testing.T) {
	p := newPlant(t)
	var got atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	_, err := p.On(dsl.Trigger[Ping]()).Then("echo", func(ctx *plant.Context, args []any) error {
		ping := args[0].(Ping)
		got.Store(int64(ping.N))
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		wg.Wait()
		p.Shutdown()
	}()
	go plant.Emit(p, Ping{N: 7})
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got.Load() != 7 {
		t.Fatalf("expected 7, got %d", got.Load())
	}
}

func TestLastDeliversMostRecentValues(t *testing.T) {
	p := newPlant(t)
	done := make(chan []int, 1)
	_, err := p.On(dsl.Last[Ping](3)).Then("collect", func(ctx *plant.Context, args []any) error {
		pings := args[0].([]Ping)
		if len(pings) == 3 {
			out := make([]int, 3)
			for i, pp := range pings {
				out[i] = pp.N
			}
			select {
			case done <- out:
			default:
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		plant.Emit(p, Ping{N: 1})
		plant.Emit(p, Ping{N: 2})
		plant.Emit(p, Ping{N: 3})
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		p.Shutdown()
	}()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-done:
		if got[0] != 3 || got[1] != 2 || got[2] != 1 {
			t.Fatalf("expected newest-first [3 2 1], got %v", got)
		}
	default:
		t.Fatal("collect reaction never saw 3 values")
	}
}

func TestSingleDropsConcurrentTask(t *testing.T) {
	p := newPlant(t)
	release := make(chan struct{})
	var running atomic.Int64
	var maxConcurrent atomic.Int64
	var seen atomic.Int64

	_, err := p.On(dsl.Trigger[Ping](), dsl.Single()).Then("slow", func(ctx *plant.Context, args []any) error {
		n := running.Add(1)
		for {
			old := maxConcurrent.Load()
			if n <= old || maxConcurrent.CompareAndSwap(old, n) {
				break
			}
		}
		seen.Add(1)
		<-release
		running.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		plant.Emit(p, Ping{N: 1})
		time.Sleep(20 * time.Millisecond)
		plant.Emit(p, Ping{N: 2}) // should be dropped: one already active
		time.Sleep(20 * time.Millisecond)
		close(release)
		time.Sleep(20 * time.Millisecond)
		p.Shutdown()
	}()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if maxConcurrent.Load() > 1 {
		t.Fatalf("Single allowed %d concurrent tasks", maxConcurrent.Load())
	}
	if seen.Load() != 1 {
		t.Fatalf("expected exactly 1 task to run, got %d", seen.Load())
	}
}

func TestSyncRunsEveryReactionInGroup(t *testing.T) {
	p := newPlant(t)
	var order []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)

	record := func(label string) {
		mu.Lock()
		order = append(order, label)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		wg.Done()
	}

	if _, err := p.On(dsl.Trigger[Ping](), dsl.Sync("g")).Then("a", func(ctx *plant.Context, args []any) error {
		record("a")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.On(dsl.Trigger[Pong](), dsl.Sync("g")).Then("b", func(ctx *plant.Context, args []any) error {
		record("b")
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	go func() {
		plant.Emit(p, Ping{N: 1})
		plant.Emit(p, Pong{N: 1})
		wg.Wait()
		p.Shutdown()
	}()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 {
		t.Fatalf("expected both reactions to run, got %v", order)
	}
}
