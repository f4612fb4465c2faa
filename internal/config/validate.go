package config

import (
	"fmt"
	"time"

	"github.com/lucasnoah/lintgate/internal/lint"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedDrivers is the set of valid history drivers.
var recognizedDrivers = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"none":     true,
}

// Validate checks a TaskConfig for semantic errors the schema cannot express.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *TaskConfig) []ValidationError {
	var errs []ValidationError
	t := cfg.Task

	if t.Engine.Output != "" && !lint.KnownOutput(t.Engine.Output) {
		errs = append(errs, ValidationError{
			Field:   "task.engine.output",
			Message: fmt.Sprintf("unrecognized output %q", t.Engine.Output),
		})
	}

	if t.Concurrency < 0 {
		errs = append(errs, ValidationError{Field: "task.concurrency", Message: "must not be negative"})
	}

	for _, d := range []struct {
		field string
		value string
	}{
		{"task.request_timeout", t.RequestTimeout},
		{"task.watch.debounce", t.Watch.Debounce},
	} {
		if d.value == "" {
			continue
		}
		dur, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, ValidationError{Field: d.field, Message: fmt.Sprintf("invalid duration %q", d.value)})
			continue
		}
		if dur < 0 {
			errs = append(errs, ValidationError{Field: d.field, Message: "must not be negative"})
		}
	}

	if t.History.Driver != "" && !recognizedDrivers[t.History.Driver] {
		errs = append(errs, ValidationError{
			Field:   "task.history.driver",
			Message: fmt.Sprintf("unrecognized driver %q", t.History.Driver),
		})
	}
	if t.History.Driver == "postgres" && t.History.DSN == "" {
		errs = append(errs, ValidationError{Field: "task.history.dsn", Message: "is required for the postgres driver"})
	}

	for i, p := range t.Lint.Plugins {
		if p == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("task.lint.plugins[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}
