package interaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CursorStore persists the id of the last post the engine replied to.
type CursorStore interface {
	// Load returns nil when no cursor has been saved.
	Load() (*int64, error)
	Save(id int64) error
}

type cursorFile struct {
	LastCheckedTweetID *int64 `json:"last_checked_tweet_id"`
}

// FileCursor keeps the cursor in a small JSON document on disk.
type FileCursor struct {
	path string
}

// NewFileCursor creates a FileCursor backed by path.
func NewFileCursor(path string) *FileCursor {
	return &FileCursor{path: path}
}

// Load reads the cursor. A missing file yields nil and no error.
func (f *FileCursor) Load() (*int64, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cursor %s: %w", f.path, err)
	}

	var doc cursorFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding cursor %s: %w", f.path, err)
	}
	return doc.LastCheckedTweetID, nil
}

// Save writes the cursor through a temp file and rename.
func (f *FileCursor) Save(id int64) error {
	data, err := json.Marshal(cursorFile{LastCheckedTweetID: &id})
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cursor: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cursor: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing cursor %s: %w", f.path, err)
	}
	return nil
}

// MemoryCursor keeps the cursor in process memory.
type MemoryCursor struct {
	id *int64
}

func (m *MemoryCursor) Load() (*int64, error) { return m.id, nil }

func (m *MemoryCursor) Save(id int64) error {
	m.id = &id
	return nil
}
