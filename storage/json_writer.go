package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// JSONWriter writes the output document to a fixed path. The destination is
// replaced only once the new content is fully on disk, so a failed run never
// leaves a truncated document behind.
type JSONWriter struct {
	path string
}

func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Path returns the destination file path.
func (j *JSONWriter) Path() string {
	return j.path
}

func (j *JSONWriter) WriteDocument(data []byte) (err error) {
	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("json: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("json: write %q: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("json: sync %q: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("json: close %q: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("json: chmod %q: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("json: rename to %q: %w", j.path, err)
	}
	return nil
}
