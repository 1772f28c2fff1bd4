package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile reads and registers one template document from disk.
func (r *Registry) LoadFile(path string) (*Entry, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
	}

	entry, err := r.LoadJSON(document)
	if err != nil {
		return nil, fmt.Errorf("template file %s: %w", path, err)
	}

	return entry, nil
}

// LoadDir registers every .json template document in a directory.
func (r *Registry) LoadDir(dir string) ([]*Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory %s: %w", dir, err)
	}

	entries := make([]*Entry, 0, len(files))

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		entry, err := r.LoadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
