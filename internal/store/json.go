package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

// JSONStore keeps the document in one indented JSON file, rewritten in full
// through a temp file and rename on every save.
type JSONStore struct {
	path string
	lock *flock.Flock
}

func OpenJSON(path string) (*JSONStore, error) {
	lock, err := acquire(path)
	if err != nil {
		return nil, err
	}
	return &JSONStore{path: path, lock: lock}, nil
}

// Load never fails on a missing or corrupt file; both yield an empty document.
func (s *JSONStore) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("module", "store.json").Str("path", s.path).Msg("no data file, starting empty")
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		log.Warn().Err(err).Str("module", "store.json").Str("path", s.path).Msg("corrupt data file, starting empty")
		return NewDocument(), nil
	}
	return doc.Normalize(), nil
}

func (s *JSONStore) Save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return s.lock.Unlock()
}
