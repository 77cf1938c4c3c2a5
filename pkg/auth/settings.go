package auth

import (
	"errors"
	"fmt"
	"os"

	"igosint/pkg/storage"
)

// SettingsStore persists the session settings blob at a fixed path
type SettingsStore struct {
	path string
}

// NewSettingsStore creates a store for the settings file at path
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Path returns the settings file location
func (s *SettingsStore) Path() string {
	return s.path
}

// Load returns the saved settings, or nil when none were saved yet
func (s *SettingsStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Save atomically replaces the settings file, readable by the owner only
func (s *SettingsStore) Save(data []byte) error {
	if err := storage.WriteAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Clear removes the settings file
func (s *SettingsStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove settings: %w", err)
	}
	return nil
}
