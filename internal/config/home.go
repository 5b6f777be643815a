package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Home returns the orchestrator's per-repository home directory (`.orc/`),
// holding config, state snapshots, and logs (spec.md §10.1 "Config
// discovery"). Priority order:
//  1. ORC_HOME environment variable, if set
//  2. the repository root, detected by finding a go.mod for this module
//  3. the current working directory, as a fallback
//
// The directory is created if it doesn't exist.
func Home() (string, error) {
	if home := os.Getenv("ORC_HOME"); home != "" {
		return home, nil
	}

	root, err := findRepoRoot()
	if err != nil {
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("config: get working directory: %w", err)
		}
	}

	home := filepath.Join(root, ".orc")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("config: create home directory: %w", err)
	}
	return home, nil
}

// findRepoRoot walks up from the working directory looking for a
// go.mod declaring this module's path, or an .orc-root marker file.
func findRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		if _, err := os.Stat(filepath.Join(current, ".orc-root")); err == nil {
			return current, nil
		}

		if data, err := os.ReadFile(filepath.Join(current, "go.mod")); err == nil {
			if strings.Contains(string(data), "github.com/waveforge/orc") {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("config: repository root not found")
}
