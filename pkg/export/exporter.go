// Package export renders collected results as tables and persists them as
// JSON and TXT files under the output directory.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"igosint/pkg/config"
	"igosint/pkg/storage"
)

// Exporter writes `{name}.json` and `{name}.txt` artifacts. JSON and TXT
// output are toggled at runtime from the shell.
type Exporter struct {
	store *storage.Manager
	style string

	mu   sync.RWMutex
	json bool
	txt  bool
}

// Saved lists the files written by Save; empty fields were not enabled
type Saved struct {
	JSON string
	TXT  string
}

// New creates an exporter writing through store
func New(store *storage.Manager, cfg config.OutputConfig) *Exporter {
	return &Exporter{store: store, style: cfg.TableStyle, json: cfg.JSON, txt: cfg.TXT}
}

func (e *Exporter) SetJSON(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.json = on
}

func (e *Exporter) SetTXT(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.txt = on
}

func (e *Exporter) JSONEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.json
}

func (e *Exporter) TXTEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.txt
}

// Style returns the configured table style
func (e *Exporter) Style() string {
	return e.style
}

// Store returns the underlying storage manager
func (e *Exporter) Store() *storage.Manager {
	return e.store
}

// Save writes data and the rendered table according to the current toggles
func (e *Exporter) Save(name string, data interface{}, t *Table) (Saved, error) {
	var saved Saved
	if e.JSONEnabled() {
		path, err := e.WriteJSON(name, data)
		if err != nil {
			return saved, err
		}
		saved.JSON = path
	}
	if e.TXTEnabled() && t != nil {
		path, err := e.WriteTXT(name, t)
		if err != nil {
			return saved, err
		}
		saved.TXT = path
	}
	return saved, nil
}

// WriteJSON writes data to `{name}.json` regardless of the toggle
func (e *Exporter) WriteJSON(name string, data interface{}) (string, error) {
	b, err := Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path, err := e.store.WriteFile(name+".json", b)
	if err != nil {
		return "", fmt.Errorf("failed to write %s.json: %w", name, err)
	}
	return path, nil
}

// WriteTXT writes the table rendered in the configured style to `{name}.txt`
func (e *Exporter) WriteTXT(name string, t *Table) (string, error) {
	path, err := e.store.WriteFile(name+".txt", []byte(t.Render(e.style)+"\n"))
	if err != nil {
		return "", fmt.Errorf("failed to write %s.txt: %w", name, err)
	}
	return path, nil
}

// Marshal encodes data with 4-space indentation and without HTML escaping
func Marshal(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
