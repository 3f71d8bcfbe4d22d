package watchstate

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FileBackend keeps the progress map in a single JSON file, replaced
// atomically on every save.
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{Path: path}, nil
}

func (b *FileBackend) Load() (map[string]Record, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Record{}, nil
		}
		return nil, err
	}
	var states map[string]Record
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (b *FileBackend) Save(states map[string]Record) error {
	data, err := json.Marshal(states)
	if err != nil {
		return err
	}
	return renameio.WriteFile(b.Path, data, 0o644)
}
