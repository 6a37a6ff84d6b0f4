package store_test

import (
	"path/filepath"
	"testing"

	"github.com/webitel/reactor-plant/internal/store"
)

func TestSaveAndLoadPoolConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SavePoolConfig(store.PoolConfig{Name: "default", Concurrency: 4}); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePoolConfig(store.PoolConfig{Name: "io", Concurrency: 2}); err != nil {
		t.Fatal(err)
	}

	cfgs, err := s.LoadPoolConfigs()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("expected 2 persisted configs, got %d", len(cfgs))
	}
}

func TestSavePoolConfigOverwritesByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SavePoolConfig(store.PoolConfig{Name: "default", Concurrency: 4}); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePoolConfig(store.PoolConfig{Name: "default", Concurrency: 8}); err != nil {
		t.Fatal(err)
	}

	cfgs, err := s.LoadPoolConfigs()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 1 || cfgs[0].Concurrency != 8 {
		t.Fatalf("expected overwritten single config with concurrency 8, got %+v", cfgs)
	}
}
