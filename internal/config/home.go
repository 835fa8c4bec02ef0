package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the reqcheck home directory
const HomeEnv = "REQCHECK_HOME"

// GetHome returns the reqcheck home directory
// Priority order:
//  1. REQCHECK_HOME environment variable (if set)
//  2. .reqcheck under the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, ".reqcheck")
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create reqcheck home directory: %w", err)
	}
	return home, nil
}

// GetConfigPath returns $REQCHECK_HOME/config.yaml
func GetConfigPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// GetHistoryDBPath returns the absolute path to the history database
// Always returns: $REQCHECK_HOME/history/comparisons.db
func GetHistoryDBPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history", "comparisons.db"), nil
}

// GetLogDir returns the run log directory under the home directory
func GetLogDir() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "logs"), nil
}
