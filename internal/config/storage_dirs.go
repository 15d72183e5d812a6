package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	APP_DIR_NAME = "iot-inventory"
)

// DataDir resolves where the database lives: $XDG_DATA_HOME, then
// ~/.local/share, then a dot directory in $HOME.
func DataDir() string {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, APP_DIR_NAME)
	}

	return homeBasedDir(".local", "share")
}

func ConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, APP_DIR_NAME)
	}

	return homeBasedDir(".config")
}

func homeBasedDir(elem ...string) string {
	homeDir, err := os.UserHomeDir()
	// In case the home directory cannot be determined use the current working directory
	if err != nil {
		currentDir, err := os.Getwd()
		if err != nil {
			return "."
		}

		return currentDir
	}

	parent := filepath.Join(append([]string{homeDir}, elem...)...)
	if _, err := os.Stat(parent); err == nil {
		return filepath.Join(parent, APP_DIR_NAME)
	}

	return filepath.Join(homeDir, fmt.Sprintf(".%s", APP_DIR_NAME))
}
