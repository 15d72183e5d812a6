package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/monorkin/iot-inventory/internal/models"
)

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	defaultSummaryInterval = 30
)

type Settings struct {
	DefaultUser            *string `json:"default_user"`
	DefaultPurpose         string  `json:"default_purpose"`
	Storage                string  `json:"storage"`
	SummaryIntervalSeconds int     `json:"summary_interval_seconds"`
}

func DefaultSettings() *Settings {
	return &Settings{
		DefaultUser:            nil,
		DefaultPurpose:         models.PurposeDataGeneration,
		Storage:                StorageSQLite,
		SummaryIntervalSeconds: defaultSummaryInterval,
	}
}

func DefaultSettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func LoadOrInitializeSettingsFromDefaultLocation() (bool, *Settings) {
	return LoadOrInitializeSettings(DefaultSettingsPath())
}

// LoadOrInitializeSettings returns true together with defaults when no
// readable settings file exists at path.
func LoadOrInitializeSettings(path string) (bool, *Settings) {
	if settings, err := LoadSettings(path); err == nil {
		return false, settings
	}

	return true, DefaultSettings()
}

func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

func (s *Settings) Validate() error {
	switch s.Storage {
	case StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", s.Storage)
	}

	if s.SummaryIntervalSeconds < 0 {
		return fmt.Errorf("summary interval must not be negative")
	}

	return nil
}

// SummaryInterval is how often the D-Bus service re-announces its summary.
// Zero disables the periodic signal.
func (s *Settings) SummaryInterval() time.Duration {
	return time.Duration(s.SummaryIntervalSeconds) * time.Second
}

// User returns the configured default borrower, or an empty string.
func (s *Settings) User() string {
	if s.DefaultUser == nil {
		return ""
	}

	return *s.DefaultUser
}

func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
