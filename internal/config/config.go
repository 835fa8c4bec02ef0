package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// MatchingConfig holds the evidence locator tunables
type MatchingConfig struct {
	// RefWindow is the radius, in characters, of the snippet cut around an explicit reference
	RefWindow int `yaml:"ref_window"`

	// MinBlocks is the number of blank-line blocks below which line packing is used instead
	MinBlocks int `yaml:"min_blocks"`

	// TargetBlockChars is the length at which packed lines are flushed into a block
	TargetBlockChars int `yaml:"target_block_chars"`

	// TokenWeight multiplies the token overlap fraction
	TokenWeight float64 `yaml:"token_weight"`

	// ValueWeight is added per requirement value whose digits occur in a block
	ValueWeight float64 `yaml:"value_weight"`

	// UnitWeight is added per requirement value whose unit occurs on a value in a block
	UnitWeight float64 `yaml:"unit_weight"`

	// NumericCap caps the numeric evidence term
	NumericCap float64 `yaml:"numeric_cap"`

	// AcceptanceFloor is the lowest block score reported as a match
	AcceptanceFloor float64 `yaml:"acceptance_floor"`

	// MaxEvidenceChars truncates scored-block evidence
	MaxEvidenceChars int `yaml:"max_evidence_chars"`

	// MinTokenLen drops shorter tokens from overlap scoring
	MinTokenLen int `yaml:"min_token_len"`

	// ExplicitRefScore is the fixed score of an explicit reference match
	ExplicitRefScore float64 `yaml:"explicit_ref_score"`
}

// HistoryConfig represents comparison history storage configuration
type HistoryConfig struct {
	// Enabled stores every compare run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`

	// KeepDays is the retention used by "history clean" when --days is not given
	KeepDays int `yaml:"keep_days"`

	// UserName is recorded with saved comparisons and comments
	UserName string `yaml:"user_name"`
}

// Config represents reqcheck configuration options
type Config struct {
	// Workers is the number of requirements evaluated concurrently (0 = one per CPU)
	Workers int `yaml:"workers"`

	// ExtractTimeout bounds text extraction of a single input document
	ExtractTimeout time.Duration `yaml:"extract_timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// RulesPath points to a ruleset YAML file; empty uses the built-in ruleset
	RulesPath string `yaml:"rules_path"`

	// DiffMaxLines limits the per-row diff
	DiffMaxLines int `yaml:"diff_max_lines"`

	// MinTextChars is the extracted length below which a document is reported as suspicious
	MinTextChars int `yaml:"min_text_chars"`

	// Matching contains evidence locator tunables
	Matching MatchingConfig `yaml:"matching"`

	// History contains comparison history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultMatchingConfig returns the locator tunables the matcher was calibrated with
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		RefWindow:        500,
		MinBlocks:        5,
		TargetBlockChars: 700,
		TokenWeight:      3.0,
		ValueWeight:      0.6,
		UnitWeight:       0.4,
		NumericCap:       2.0,
		AcceptanceFloor:  0.9,
		MaxEvidenceChars: 1200,
		MinTokenLen:      3,
		ExplicitRefScore: 10.0,
	}
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Workers:        0,
		ExtractTimeout: 2 * time.Minute,
		LogLevel:       "info",
		LogDir:         ".reqcheck/logs",
		RulesPath:      "",
		DiffMaxLines:   8,
		MinTextChars:   50,
		Matching:       DefaultMatchingConfig(),
		History: HistoryConfig{
			Enabled:  false,
			DBPath:   ".reqcheck/history/comparisons.db",
			KeepDays: 90,
			UserName: "Аноним",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlConfig struct {
		Workers        int            `yaml:"workers"`
		ExtractTimeout string         `yaml:"extract_timeout"`
		LogLevel       string         `yaml:"log_level"`
		LogDir         string         `yaml:"log_dir"`
		RulesPath      string         `yaml:"rules_path"`
		DiffMaxLines   int            `yaml:"diff_max_lines"`
		MinTextChars   int            `yaml:"min_text_chars"`
		Matching       MatchingConfig `yaml:"matching"`
		History        HistoryConfig  `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.Workers != 0 {
		cfg.Workers = yamlCfg.Workers
	}
	if yamlCfg.ExtractTimeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.ExtractTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid extract_timeout format %q: %w", yamlCfg.ExtractTimeout, err)
		}
		cfg.ExtractTimeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.RulesPath != "" {
		cfg.RulesPath = yamlCfg.RulesPath
	}
	if yamlCfg.DiffMaxLines != 0 {
		cfg.DiffMaxLines = yamlCfg.DiffMaxLines
	}
	if yamlCfg.MinTextChars != 0 {
		cfg.MinTextChars = yamlCfg.MinTextChars
	}
	mergeMatching(&cfg.Matching, yamlCfg.Matching)

	// History booleans and strings may be set to their zero value on purpose,
	// so the raw document decides which keys were present
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			history := yamlCfg.History
			historyMap, _ := historySection.(map[string]interface{})

			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = history.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = history.DBPath
			}
			if _, exists := historyMap["keep_days"]; exists {
				cfg.History.KeepDays = history.KeepDays
			}
			if _, exists := historyMap["user_name"]; exists {
				cfg.History.UserName = history.UserName
			}
		}
	}

	return cfg, nil
}

func mergeMatching(dst *MatchingConfig, src MatchingConfig) {
	if src.RefWindow != 0 {
		dst.RefWindow = src.RefWindow
	}
	if src.MinBlocks != 0 {
		dst.MinBlocks = src.MinBlocks
	}
	if src.TargetBlockChars != 0 {
		dst.TargetBlockChars = src.TargetBlockChars
	}
	if src.TokenWeight != 0 {
		dst.TokenWeight = src.TokenWeight
	}
	if src.ValueWeight != 0 {
		dst.ValueWeight = src.ValueWeight
	}
	if src.UnitWeight != 0 {
		dst.UnitWeight = src.UnitWeight
	}
	if src.NumericCap != 0 {
		dst.NumericCap = src.NumericCap
	}
	if src.AcceptanceFloor != 0 {
		dst.AcceptanceFloor = src.AcceptanceFloor
	}
	if src.MaxEvidenceChars != 0 {
		dst.MaxEvidenceChars = src.MaxEvidenceChars
	}
	if src.MinTokenLen != 0 {
		dst.MinTokenLen = src.MinTokenLen
	}
	if src.ExplicitRefScore != 0 {
		dst.ExplicitRefScore = src.ExplicitRefScore
	}
}

// LoadConfigFromDir loads configuration from .reqcheck/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".reqcheck", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(workers *int, logLevel *string, logDir *string, rulesPath *string) {
	if workers != nil {
		c.Workers = *workers
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if rulesPath != nil {
		c.RulesPath = *rulesPath
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.ExtractTimeout < 0 {
		return fmt.Errorf("extract_timeout must be >= 0, got %v", c.ExtractTimeout)
	}
	if c.DiffMaxLines <= 0 {
		return fmt.Errorf("diff_max_lines must be > 0, got %d", c.DiffMaxLines)
	}
	if c.MinTextChars < 0 {
		return fmt.Errorf("min_text_chars must be >= 0, got %d", c.MinTextChars)
	}

	if err := c.Matching.Validate(); err != nil {
		return err
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}
	if c.History.KeepDays < 0 {
		return fmt.Errorf("history.keep_days must be >= 0, got %d", c.History.KeepDays)
	}

	return nil
}

// Validate rejects tunables the locator cannot work with
func (m MatchingConfig) Validate() error {
	ints := []struct {
		name  string
		value int
	}{
		{"ref_window", m.RefWindow},
		{"min_blocks", m.MinBlocks},
		{"target_block_chars", m.TargetBlockChars},
		{"max_evidence_chars", m.MaxEvidenceChars},
		{"min_token_len", m.MinTokenLen},
	}
	for _, f := range ints {
		if f.value <= 0 {
			return fmt.Errorf("matching.%s must be > 0, got %d", f.name, f.value)
		}
	}

	floats := []struct {
		name  string
		value float64
	}{
		{"token_weight", m.TokenWeight},
		{"value_weight", m.ValueWeight},
		{"unit_weight", m.UnitWeight},
		{"numeric_cap", m.NumericCap},
		{"acceptance_floor", m.AcceptanceFloor},
	}
	for _, f := range floats {
		if f.value < 0 {
			return fmt.Errorf("matching.%s must be >= 0, got %v", f.name, f.value)
		}
	}

	if m.ExplicitRefScore < m.AcceptanceFloor {
		return fmt.Errorf("matching.explicit_ref_score (%v) must not be below acceptance_floor (%v)", m.ExplicitRefScore, m.AcceptanceFloor)
	}
	return nil
}
