// Package engine is the authoritative record store for applications, tickets and settings.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

// Persistence handles the disk I/O for the Store: one JSON document per community.
type Persistence struct {
	Path string
	mu   sync.Mutex // Protects concurrent access to the file
}

// NewPersistence prepares a persistence handler for the given file path.
func NewPersistence(path string) (*Persistence, error) {
	// Ensure the data directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Persistence{Path: path}, nil
}

// Save writes the whole snapshot atomically. Each save uses its own temp file
// so concurrent writers never rename each other's data.
func (p *Persistence) Save(snap *schema.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bytes, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.Path), ".db-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tempPath)
	}()

	if _, err := tmp.Write(bytes); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tempPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tempPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tempPath, err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", tempPath, err)
	}

	// Readers see either the old document or the new one, never a partial write.
	if err := os.Rename(tempPath, p.Path); err != nil {
		return fmt.Errorf("replace %s: %w", p.Path, err)
	}
	return nil
}

// Load reads the document. ok is false when no document exists yet.
func (p *Persistence) Load() (snap *schema.Snapshot, ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	content, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", p.Path, err)
	}

	snap = &schema.Snapshot{}
	if err := json.Unmarshal(content, snap); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", p.Path, err)
	}
	snap.Normalize()
	return snap, true, nil
}
