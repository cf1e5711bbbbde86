package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigYAMLRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Survey.SamplesPerEvaluation = 2
	cfg.Storage.Backend = BackendSQLite

	if err := WriteConfig(tmpDir, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if loaded.Survey.SamplesPerEvaluation != 2 {
		t.Errorf("SamplesPerEvaluation: got %d, want 2", loaded.Survey.SamplesPerEvaluation)
	}
	if loaded.Storage.Backend != BackendSQLite {
		t.Errorf("Storage.Backend: got %q, want %q", loaded.Storage.Backend, BackendSQLite)
	}
	if got := strings.Join(loaded.StimulusIDs(), ","); got != "Prius,Fit,Model3" {
		t.Errorf("StimulusIDs: got %q, want %q", got, "Prius,Fit,Model3")
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	partial := `version: 1
survey:
  samples_per_evaluation: 2
storage:
  backend: file
  data_dir: /tmp/responses
`
	configPath := filepath.Join(tmpDir, ".drivesound")
	if err := os.MkdirAll(configPath, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configPath, "config.yaml"), []byte(partial), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.Survey.AudioCheckAnswer != "cat" {
		t.Errorf("AudioCheckAnswer: got %q, want default %q", cfg.Survey.AudioCheckAnswer, "cat")
	}
	if len(cfg.Stimuli.Catalog) != 3 {
		t.Errorf("Catalog length: got %d, want 3", len(cfg.Stimuli.Catalog))
	}
	if got := cfg.DataDir(tmpDir); got != "/tmp/responses" {
		t.Errorf("DataDir: got %q, want absolute path preserved", got)
	}
}

func TestReadConfigMissing(t *testing.T) {
	if _, err := ReadConfig(t.TempDir()); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero samples", func(c *Config) { c.Survey.SamplesPerEvaluation = 0 }, "samples_per_evaluation"},
		{"one group", func(c *Config) { c.Survey.Groups = []string{"A"} }, "exactly two groups"},
		{"same group twice", func(c *Config) { c.Survey.Groups = []string{"A", "A"} }, "distinct"},
		{"empty group label", func(c *Config) { c.Survey.Groups = []string{"A", ""} }, "distinct"},
		{"renamed groups", func(c *Config) { c.Survey.Groups = []string{"forward", "reverse"} }, ""},
		{"no interview", func(c *Config) { c.Survey.InterviewOrder = nil }, "interview_order"},
		{"empty catalog", func(c *Config) { c.Stimuli.Catalog = nil }, "catalog is empty"},
		{"duplicate stimulus", func(c *Config) {
			c.Stimuli.Catalog = append(c.Stimuli.Catalog, Stimulus{ID: "Fit"})
		}, "duplicate stimulus"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
