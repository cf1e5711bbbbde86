// Package config handles reading and writing .drivesound/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .drivesound/config.yaml.
type Config struct {
	Version int           `yaml:"version"`
	Survey  SurveyConfig  `yaml:"survey"`
	Stimuli StimuliConfig `yaml:"stimuli"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Cleanup CleanupConfig `yaml:"cleanup"`
}

// SurveyConfig controls the shape of the survey flow.
type SurveyConfig struct {
	SamplesPerEvaluation int      `yaml:"samples_per_evaluation"`
	Groups               []string `yaml:"groups"`
	InterviewOrder       []string `yaml:"interview_order"` // topic ids, e.g. topic2, topic1, topic3
	AudioCheckOptions    []string `yaml:"audio_check_options"`
	AudioCheckAnswer     string   `yaml:"audio_check_answer"`
}

// Stimulus is one evaluated driving-sound sample.
type Stimulus struct {
	ID    string `yaml:"id"`
	Media string `yaml:"media"` // path relative to the project root
}

// StimuliConfig holds the stimulus catalog and the comprehension-check audio.
type StimuliConfig struct {
	Catalog   []Stimulus `yaml:"catalog"`
	TestAudio string     `yaml:"test_audio"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`  // "file" | "sqlite"
	DataDir string `yaml:"data_dir"` // relative to the project root unless absolute
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// CleanupConfig controls pruning of old export files.
type CleanupConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

const configDir = ".drivesound"
const configFile = "config.yaml"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Dir returns the .drivesound directory for a project root.
func Dir(root string) string {
	return filepath.Join(root, configDir)
}

// ReadConfig reads .drivesound/config.yaml from the given project directory.
// dir is the project root (not .drivesound/ itself).
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to .drivesound/config.yaml in the given project directory.
// Creates the .drivesound/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate reports configuration values the flow cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Survey.SamplesPerEvaluation < 1 {
		errs = append(errs, fmt.Errorf("survey.samples_per_evaluation must be >= 1, got %d", c.Survey.SamplesPerEvaluation))
	}
	if len(c.Survey.Groups) != 2 {
		errs = append(errs, fmt.Errorf("survey.groups must name exactly two groups, got %d", len(c.Survey.Groups)))
	} else if g := c.Survey.Groups; g[0] == "" || g[1] == "" || g[0] == g[1] {
		// The second label marks the reversed-order group.
		errs = append(errs, fmt.Errorf("survey.groups must be two distinct non-empty labels, got %q", g))
	}
	if len(c.Survey.InterviewOrder) == 0 {
		errs = append(errs, errors.New("survey.interview_order is empty"))
	}
	if c.Survey.AudioCheckAnswer == "" {
		errs = append(errs, errors.New("survey.audio_check_answer is empty"))
	}
	if len(c.Stimuli.Catalog) == 0 {
		errs = append(errs, errors.New("stimuli.catalog is empty"))
	}
	seen := make(map[string]bool, len(c.Stimuli.Catalog))
	for _, s := range c.Stimuli.Catalog {
		if s.ID == "" {
			errs = append(errs, errors.New("stimuli.catalog entry without id"))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate stimulus id %q", s.ID))
		}
		seen[s.ID] = true
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Storage.Backend))
	}
	return errors.Join(errs...)
}

// StimulusIDs returns the catalog ids in declaration order.
func (c *Config) StimulusIDs() []string {
	ids := make([]string, 0, len(c.Stimuli.Catalog))
	for _, s := range c.Stimuli.Catalog {
		ids = append(ids, s.ID)
	}
	return ids
}

// DataDir resolves the storage directory against the project root.
func (c *Config) DataDir(root string) string {
	if filepath.IsAbs(c.Storage.DataDir) {
		return c.Storage.DataDir
	}
	return filepath.Join(root, c.Storage.DataDir)
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Survey: SurveyConfig{
			SamplesPerEvaluation: 3,
			Groups:               []string{"A", "B"},
			InterviewOrder:       []string{"topic2", "topic1", "topic3"},
			AudioCheckOptions:    []string{"cat", "dog", "bird", "car engine", "rain"},
			AudioCheckAnswer:     "cat",
		},
		Stimuli: StimuliConfig{
			Catalog: []Stimulus{
				{ID: "Prius", Media: "material/01_sample_movie/01_NBox_Prius.mp4"},
				{ID: "Fit", Media: "material/01_sample_movie/02_NBox_Fit.mp4"},
				{ID: "Model3", Media: "material/01_sample_movie/03_NBox_Model3.mp4"},
			},
			TestAudio: "material/00_test/cat.mp3",
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			DataDir: "data",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8501",
		},
		Cleanup: CleanupConfig{
			MaxAgeDays: 30,
		},
	}
}
