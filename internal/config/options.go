package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultRuleConfigPath is loaded when rule_config is true.
const DefaultRuleConfigPath = ".htmllintrc"

// DefaultFormat names the formatter used when none is configured.
const DefaultFormat = "pretty"

// internalKeys never reach the engine.
var internalKeys = []string{"plugins", "ruleConfigPath", "htmllintrc"}

// ConfigLoadError reports a rule configuration document that could not be
// read or parsed.
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("load rule config %s: %v", e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

// Settings is the effective configuration for one run. It is built by
// Resolve and not modified afterwards.
type Settings struct {
	Format         string
	Plugins        []string
	RuleConfigPath string
	ForceSuccess   bool
	engine         map[string]any
}

// Engine returns a copy of the options visible to the lint engine.
func (s *Settings) Engine() map[string]any {
	return maps.Clone(s.engine)
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{Format: DefaultFormat}
}

// Merge overlays caller on defaults. Scalars and lists are taken from caller
// when set, an explicit false included; engine options merge one level deep,
// caller keys winning.
func Merge(defaults, caller Options) Options {
	out := Options{
		Format:       defaults.Format,
		Plugins:      slices.Clone(defaults.Plugins),
		RuleConfig:   defaults.RuleConfig,
		ForceSuccess: defaults.ForceSuccess,
	}
	if caller.ForceSuccess != nil {
		out.ForceSuccess = Bool(*caller.ForceSuccess)
	}
	if caller.Format != "" {
		out.Format = caller.Format
	}
	if caller.Plugins != nil {
		out.Plugins = slices.Clone(caller.Plugins)
	}
	if caller.RuleConfig.Specified() {
		out.RuleConfig = caller.RuleConfig
	}
	if defaults.EngineOptions != nil || caller.EngineOptions != nil {
		out.EngineOptions = make(map[string]any, len(defaults.EngineOptions)+len(caller.EngineOptions))
		maps.Copy(out.EngineOptions, defaults.EngineOptions)
		maps.Copy(out.EngineOptions, caller.EngineOptions)
	}
	return out
}

// Resolve merges caller over defaults and, when a rule configuration document
// is requested, substitutes that document for the engine options. Plugins
// then come from the document's plugins key; Format and ForceSuccess keep
// their merged values.
func Resolve(defaults, caller Options) (*Settings, error) {
	merged := Merge(defaults, caller)
	s := &Settings{
		Format:       merged.Format,
		Plugins:      merged.Plugins,
		ForceSuccess: merged.ForceSuccess != nil && *merged.ForceSuccess,
		engine:       merged.EngineOptions,
	}
	if s.Format == "" {
		s.Format = DefaultFormat
	}

	if merged.RuleConfig.IsSet() {
		path := merged.RuleConfig.Location()
		doc, err := LoadRuleConfig(path)
		if err != nil {
			return nil, err
		}
		plugins, err := pluginList(doc["plugins"])
		if err != nil {
			return nil, &ConfigLoadError{Path: path, Err: err}
		}
		s.RuleConfigPath = path
		s.Plugins = plugins
		s.engine = doc
	}

	if s.engine == nil {
		s.engine = map[string]any{}
	}
	for _, k := range internalKeys {
		delete(s.engine, k)
	}
	return s, nil
}

// LoadRuleConfig reads a rule configuration document. JSON documents parse
// as YAML.
func LoadRuleConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigLoadError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, &ConfigLoadError{Path: path, Err: errors.New("document is not a mapping")}
	}
	return m, nil
}

func pluginList(v any) ([]string, error) {
	switch p := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{p}, nil
	case []any:
		out := make([]string, 0, len(p))
		for i, item := range p {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("plugins[%d] is not a string", i)
			}
			out = append(out, name)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("plugins must be a list of names, got %T", v)
	}
}
