package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen = %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "taskdeck.db" {
		t.Errorf("db = %q", cfg.DBPath)
	}
	if cfg.TemplateTTL != 5*time.Minute {
		t.Errorf("template-ttl = %v", cfg.TemplateTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.yaml")
	doc := "listen: \":9090\"\ndb: \":memory:\"\ntemplate-ttl: 30s\nverbose: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.DBPath != ":memory:" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.TemplateTTL != 30*time.Second || !cfg.Verbose {
		t.Errorf("file values not applied: %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TASKDECK_LISTEN", ":7070")
	t.Setenv("TASKDECK_TEMPLATE_TTL", "1m")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("env override not applied: listen = %q", cfg.ListenAddr)
	}
	if cfg.TemplateTTL != time.Minute {
		t.Errorf("env override not applied: ttl = %v", cfg.TemplateTTL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit missing config file should error")
	}
}
