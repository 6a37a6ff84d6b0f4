package ioservice

import (
	"os"
	"testing"
	"time"
)

func TestRegisterDeliversReadableEvent(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	events := make(chan Event, 4)
	cancel, err := s.Register(r, Readable, func(e Event) { events <- e })
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if _, err := w.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-events:
		if e.Err != nil {
			t.Fatalf("unexpected error event: %v", e.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for readable event")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	events := make(chan Event, 4)
	cancel, err := s.Register(r, Readable, func(e Event) { events <- e })
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	w.Close()

	select {
	case e := <-events:
		t.Fatalf("expected no events after cancel, got %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}
