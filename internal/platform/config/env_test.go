package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Path string `env:"MOONHOLLOW_TEST_DB_PATH" envDefault:"data/test.db"`
	Size int    `env:"MOONHOLLOW_TEST_SIZE" envDefault:"5"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Path != "data/test.db" {
		t.Fatalf("expected default path, got %q", cfg.Path)
	}
	if cfg.Size != 5 {
		t.Fatalf("expected default size 5, got %d", cfg.Size)
	}
}

func TestParseEnvOverridesAndError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("MOONHOLLOW_TEST_DB_PATH", "/tmp/other.db")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Path != "/tmp/other.db" {
		t.Fatalf("expected env override, got %q", cfg.Path)
	}

	t.Setenv("MOONHOLLOW_TEST_SIZE", "not-an-int")
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
