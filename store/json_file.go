package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFileStore keeps the document in a single JSON file.
//
// Save is one os.WriteFile call: there is no temp file and no rename, so a
// crash mid-write can leave a truncated file behind.
type JSONFileStore struct {
	path string
}

func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &JSONFileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *JSONFileStore) Path() string {
	return s.path
}

func (s *JSONFileStore) Load() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

func (s *JSONFileStore) Save(doc Document) error {
	b, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
