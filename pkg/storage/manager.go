package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Manager writes files under a base directory. Every write lands in a
// temporary file first and is renamed into place, so readers never observe
// a partial file.
type Manager struct {
	baseDir string
	written atomic.Int64
}

// NewManager creates a storage manager rooted at baseDir. The directory is
// created lazily on the first write.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// BaseDir returns the root directory
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Path joins parts under the base directory. An absolute first part is
// used as is.
func (m *Manager) Path(parts ...string) string {
	if len(parts) > 0 && filepath.IsAbs(parts[0]) {
		return filepath.Join(parts...)
	}
	return filepath.Join(append([]string{m.baseDir}, parts...)...)
}

// EnsureDir creates rel under the base directory and returns its path
func (m *Manager) EnsureDir(rel string) (string, error) {
	dir := m.Path(rel)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// Exists reports whether rel exists under the base directory
func (m *Manager) Exists(rel string) bool {
	_, err := os.Stat(m.Path(rel))
	return err == nil
}

// WriteFile atomically writes data to rel and returns the final path
func (m *Manager) WriteFile(rel string, data []byte) (string, error) {
	return m.Save(rel, bytes.NewReader(data))
}

// Save atomically copies r into rel and returns the final path
func (m *Manager) Save(rel string, r io.Reader) (string, error) {
	path := m.Path(rel)
	if err := SaveAtomic(path, r, 0644); err != nil {
		return "", err
	}
	m.written.Add(1)
	return path, nil
}

// Written returns the number of files written through this manager
func (m *Manager) Written() int64 {
	return m.written.Load()
}

// WriteAtomic writes data to path through a temporary file and rename
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	return SaveAtomic(path, bytes.NewReader(data), perm)
}

// SaveAtomic copies r to path through a temporary file in the same directory
func SaveAtomic(path string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write file data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err := os.Chmod(tempFile, perm); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
