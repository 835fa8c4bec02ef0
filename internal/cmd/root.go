package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/reqcheck/internal/config"
	"github.com/harrison/reqcheck/internal/rules"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for reqcheck
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reqcheck",
		Short: "Requirement coverage checker for TTZ and KD documents",
		Long: `reqcheck checks a design document (KD) against a technical
requirements specification (TTZ).

It extracts numbered requirements from the TTZ, locates evidence for each one
in the KD, verifies numeric constraints and reports a per-requirement status:
OK, PARTIAL, FOUND or NOT_FOUND.

Configuration is loaded from .reqcheck/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .reqcheck/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-dir", "", "Directory for run logs")
	cmd.PersistentFlags().Int("workers", 0, "Requirements evaluated concurrently (0 = one per CPU)")
	cmd.PersistentFlags().String("rules", "", "Ruleset YAML file (default: built-in)")

	cmd.AddCommand(NewCompareCommand())
	cmd.AddCommand(NewParseCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewRulesCommand())

	return cmd
}

// loadConfig reads the config file and applies persistent flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Only flags the user actually set override the file
	var workersPtr *int
	if cmd.Flags().Changed("workers") {
		workers, _ := cmd.Flags().GetInt("workers")
		workersPtr = &workers
	}
	var logLevelPtr, logDirPtr, rulesPtr *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &v
	}
	if cmd.Flags().Changed("rules") {
		v, _ := cmd.Flags().GetString("rules")
		rulesPtr = &v
	}
	cfg.MergeWithFlags(workersPtr, logLevelPtr, logDirPtr, rulesPtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadRules compiles the configured ruleset, or returns the built-in one
func loadRules(cfg *config.Config) (*rules.Compiled, error) {
	rs, err := rules.LoadCompiled(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", cfg.RulesPath, err)
	}
	return rs, nil
}
