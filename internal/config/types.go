package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// TaskConfig is the top-level structure parsed from lintgate.yaml.
type TaskConfig struct {
	Task Task `yaml:"task"`
}

// Task defines one lint task: which files, how to lint them, and where the
// results go.
type Task struct {
	Name           string        `yaml:"name"`
	Files          []string      `yaml:"files"`
	Lint           Options       `yaml:"lint"`
	Engine         EngineConfig  `yaml:"engine"`
	Concurrency    int           `yaml:"concurrency"`
	RequestTimeout string        `yaml:"request_timeout"`
	OutputDir      string        `yaml:"output_dir"`
	History        HistoryConfig `yaml:"history"`
	Watch          WatchConfig   `yaml:"watch"`
}

// EngineConfig describes the external lint engine command.
type EngineConfig struct {
	Command string `yaml:"command"`
	Dir     string `yaml:"dir"`
	Output  string `yaml:"output"`
}

// HistoryConfig selects where run history is recorded.
type HistoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// WatchConfig tunes lint --watch.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// Options is the caller-facing lint configuration. A nil ForceSuccess means
// the value was not given, so an explicit false still overrides a default.
type Options struct {
	Format        string         `yaml:"format,omitempty"`
	Plugins       []string       `yaml:"plugins,omitempty"`
	RuleConfig    RuleConfigRef  `yaml:"rule_config,omitempty"`
	ForceSuccess  *bool          `yaml:"force_success,omitempty"`
	EngineOptions map[string]any `yaml:"options,omitempty"`
}

// Bool returns a pointer to b, for filling ForceSuccess.
func Bool(b bool) *bool { return &b }

// RuleConfigRef points at a rule configuration document. It is written in
// YAML either as a boolean (true selects DefaultRuleConfigPath) or as a path.
// Given records that a value was supplied at all, including false.
type RuleConfigRef struct {
	Enabled bool
	Path    string
	Given   bool
}

// IsSet reports whether a rule configuration document should be loaded.
func (r RuleConfigRef) IsSet() bool { return r.Enabled }

// Specified reports whether the reference was given explicitly, as opposed to
// left at its zero value.
func (r RuleConfigRef) Specified() bool { return r.Given || r.Enabled }

// IsZero lets yaml omit an unspecified reference.
func (r RuleConfigRef) IsZero() bool { return !r.Specified() }

// Location returns the path of the document to load.
func (r RuleConfigRef) Location() string {
	if r.Path != "" {
		return r.Path
	}
	return DefaultRuleConfigPath
}

func (r RuleConfigRef) String() string {
	switch {
	case !r.Enabled:
		return "false"
	case r.Path == "":
		return "true"
	default:
		return r.Path
	}
}

// ParseRuleConfigRef interprets a flag value: "true"/"false" toggle the
// default document, anything else is a path.
// The result is always Specified; an empty value disables the document.
func ParseRuleConfigRef(s string) RuleConfigRef {
	if b, err := strconv.ParseBool(s); err == nil {
		return RuleConfigRef{Enabled: b, Given: true}
	}
	if s == "" {
		return RuleConfigRef{Given: true}
	}
	return RuleConfigRef{Enabled: true, Path: s, Given: true}
}

func (r *RuleConfigRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: rule_config must be a boolean or a path", node.Line)
	}
	switch node.Tag {
	case "!!null":
		*r = RuleConfigRef{}
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*r = RuleConfigRef{Enabled: b, Given: true}
	default:
		*r = ParseRuleConfigRef(node.Value)
	}
	return nil
}

func (r RuleConfigRef) MarshalYAML() (any, error) {
	switch {
	case !r.Enabled:
		return false, nil
	case r.Path == "":
		return true, nil
	default:
		return r.Path, nil
	}
}
