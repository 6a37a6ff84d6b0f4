package config_test

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/webitel/reactor-plant/internal/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.Flags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := config.Load("", fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultPoolConcurrency != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.DefaultPoolConcurrency)
	}
	if cfg.AMQP.Enabled {
		t.Fatal("expected amqp disabled by default")
	}
	if cfg.StorePath == "" {
		t.Fatal("expected a non-empty default store path")
	}
}

func TestLoadAppliesFlagOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.Flags(fs)
	if err := fs.Parse([]string{"--log_level=debug", "--default_pool_concurrency=9"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := config.Load("", fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log_level=debug, got %q", cfg.LogLevel)
	}
	if cfg.DefaultPoolConcurrency != 9 {
		t.Fatalf("expected concurrency 9, got %d", cfg.DefaultPoolConcurrency)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"warn":    "WARN",
		"error":   "ERROR",
		"info":    "INFO",
		"unknown": "INFO",
	}
	for in, want := range cases {
		if got := config.ParseLevel(in).String(); got != want {
			t.Fatalf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
