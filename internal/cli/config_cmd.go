package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/lintgate/internal/config"
)

var configFile string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and inspect task configuration",
	Long: `Validate and inspect task configuration.

Without --file the first of ./lintgate.yaml and ~/.lintgate/config.yaml is used.
When neither exists the built-in defaults are shown and validated.`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the task configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, source, err := readTaskConfig()
		if err != nil {
			return err
		}

		errs := config.Validate(cfg)
		if len(errs) == 0 {
			cmd.Printf("%s: configuration is valid.\n", source)
			return nil
		}

		cmd.Printf("%s: %d validation error(s):\n", source, len(errs))
		for _, e := range errs {
			cmd.Printf("  - %s\n", e)
		}
		cmd.SilenceUsage = true
		return fmt.Errorf("config has %d validation error(s)", len(errs))
	},
}

// resolvedLint is the lint section after defaults, the task file and any rule
// config document have been applied: what the engine will actually see.
type resolvedLint struct {
	Format         string         `yaml:"format"`
	Plugins        []string       `yaml:"plugins"`
	RuleConfigPath string         `yaml:"rule_config_path,omitempty"`
	ForceSuccess   bool           `yaml:"force_success"`
	EngineOptions  map[string]any `yaml:"engine_options"`
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configuration with defaults applied",
	Long: `Show the task configuration with defaults applied. With --resolved, show only
the lint settings the engine will receive, after the rule config document (if
any) has been loaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, source, err := readTaskConfig()
		if err != nil {
			return err
		}

		var v any = cfg
		if resolved, _ := cmd.Flags().GetBool("resolved"); resolved {
			s, err := config.Resolve(config.Merge(config.DefaultOptions(), cfg.Task.Lint), config.Options{})
			if err != nil {
				return err
			}
			v = resolvedLint{
				Format:         s.Format,
				Plugins:        s.Plugins,
				RuleConfigPath: s.RuleConfigPath,
				ForceSuccess:   s.ForceSuccess,
				EngineOptions:  s.Engine(),
			}
		}

		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}
		cmd.Printf("# source: %s\n", source)
		cmd.Print(string(data))
		return nil
	},
}

// readTaskConfig loads --file, else the first config on the search path, else
// the built-in defaults. source names where the configuration came from.
func readTaskConfig() (cfg *config.TaskConfig, source string, err error) {
	path := configFile
	if path == "" {
		path = config.Locate()
	}
	if path == "" {
		return config.Default(), "built-in defaults", nil
	}
	cfg, err = config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func init() {
	configCmd.PersistentFlags().StringVarP(&configFile, "file", "f", "", "path to task config file")
	configShowCmd.Flags().Bool("resolved", false, "show the effective lint settings instead of the whole file")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
