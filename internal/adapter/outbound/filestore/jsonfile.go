// Package filestore persists member data as JSON documents on local disk.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/devmob/onboard/internal/model"
)

// jsonFile is a member-keyed JSON object stored in one file. Every mutation
// rewrites the whole document through a temp file and rename.
type jsonFile[V any] struct {
	mu   sync.Mutex
	path string
}

func newJSONFile[V any](path string) *jsonFile[V] {
	return &jsonFile[V]{path: path}
}

// load reads the document. A missing file is an empty document. Callers hold mu.
func (f *jsonFile[V]) load() (map[model.Snowflake]V, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[model.Snowflake]V), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	doc := make(map[model.Snowflake]V)
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return doc, nil
}

// store writes the document atomically. Callers hold mu.
func (f *jsonFile[V]) store(doc map[model.Snowflake]V) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// get returns the value stored for id.
func (f *jsonFile[V]) get(id model.Snowflake) (V, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero V
	doc, err := f.load()
	if err != nil {
		return zero, false, err
	}
	v, ok := doc[id]
	return v, ok, nil
}

// update applies fn to the document and writes it back when fn reports a change.
func (f *jsonFile[V]) update(fn func(doc map[model.Snowflake]V) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	if !fn(doc) {
		return nil
	}
	return f.store(doc)
}
