package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/lintgate/internal/lint"
)

// Load reads and parses a task configuration from the given YAML file path.
// The raw document is checked against the task schema before decoding, and
// defaults are applied afterwards.
func Load(path string) (*TaskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var cfg TaskConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// SearchPaths returns the locations LoadDefault tries, in order:
// ./lintgate.yaml, ~/.lintgate/config.yaml
func SearchPaths() []string {
	candidates := []string{"lintgate.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".lintgate", "config.yaml"))
	}
	return candidates
}

// Locate returns the first of SearchPaths that exists, or "" if none does.
func Locate() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadDefault loads the first task config found in SearchPaths.
func LoadDefault() (*TaskConfig, error) {
	path := Locate()
	if path == "" {
		return nil, fmt.Errorf("no task config found (searched: %v)", SearchPaths())
	}
	return Load(path)
}

// Default returns the configuration used when no task file exists.
func Default() *TaskConfig {
	cfg := &TaskConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *TaskConfig) {
	t := &cfg.Task

	if t.Lint.Format == "" {
		t.Lint.Format = DefaultFormat
	}
	if t.Engine.Output == "" {
		t.Engine.Output = lint.OutputHTMLLint
	}
	if t.History.Driver == "" {
		t.History.Driver = "sqlite"
	}
	if t.Watch.Debounce == "" {
		t.Watch.Debounce = "300ms"
	}
}
