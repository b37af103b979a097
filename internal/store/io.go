package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const fileMode os.FileMode = 0o600

// readJSON reads path into out; a missing file leaves out untouched.
func readJSON(path string, out any) error {
	b, err := readFile(path)
	if err != nil || b == nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readFile returns nil, nil for a missing file.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// writeJSON encodes v and replaces path atomically.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

// writeFile writes to a temp file in the same directory, then renames it
// over path so readers never see a partial file.
func writeFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(fileMode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// updateJSON loads the map stored at path, applies fn and writes it back.
func updateJSON[K comparable, V any](path string, fn func(m map[K]V) error) error {
	m := map[K]V{}
	if err := readJSON(path, &m); err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return writeJSON(path, m)
}

// lookupJSON loads the map stored at path and returns the entry for k.
func lookupJSON[K comparable, V any](path string, k K) (V, bool, error) {
	m := map[K]V{}
	if err := readJSON(path, &m); err != nil {
		var zero V
		return zero, false, err
	}
	v, ok := m[k]
	return v, ok, nil
}
