package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lucasnoah/lintgate/internal/config"
	"github.com/lucasnoah/lintgate/internal/db"
	"github.com/lucasnoah/lintgate/internal/formatter"
)

// loadTaskConfig loads path, or the first config in the default search paths.
// With no file anywhere it returns the built-in defaults. The result is
// validated.
func loadTaskConfig(path string) (*config.TaskConfig, error) {
	var (
		cfg *config.TaskConfig
		err error
	)
	switch {
	case path != "":
		cfg, err = config.Load(path)
	case config.Locate() != "":
		cfg, err = config.LoadDefault()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load task config: %w", err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("task config has %d validation error(s): %s", len(errs), strings.Join(msgs, "; "))
	}
	return cfg, nil
}

// openHistory opens and migrates the run history database configured in h.
// It returns nil without error when history is disabled.
func openHistory(h config.HistoryConfig) (*db.DB, func(), error) {
	if h.Driver == "none" {
		return nil, func() {}, nil
	}
	dsn := h.DSN
	if h.Driver != db.DriverPostgres && dsn == "" {
		p, err := db.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
		dsn = p
	}
	d, err := db.OpenDriver(h.Driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

// openDB opens the history database named by the default task config.
func openDB() (*db.DB, func(), error) {
	cfg, err := loadTaskConfig("")
	if err != nil {
		return nil, nil, err
	}
	d, cleanup, err := openHistory(cfg.Task.History)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, fmt.Errorf("run history is disabled (task.history.driver: none)")
	}
	return d, cleanup, nil
}

// colorFor reports whether formatter output to w should be styled.
func colorFor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && formatter.ColorEnabled(f)
}
