// Package samples ships a small demonstration corpus.
package samples

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed corpus/*.txt
var corpus embed.FS

// Names returns the sample file names in lexical order.
func Names() []string {
	entries, err := corpus.ReadDir("corpus")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// Read returns the content of a sample file.
func Read(name string) (string, error) {
	data, err := corpus.ReadFile(path.Join("corpus", name))
	if err != nil {
		return "", fmt.Errorf("sample %s: %w", name, err)
	}
	return string(data), nil
}

// Write copies the samples into dir, creating it if needed. Existing files
// are left untouched unless overwrite is set. It returns the paths written.
func Write(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var written []string
	for _, name := range Names() {
		dst := filepath.Join(dir, name)
		if !overwrite {
			if _, err := os.Stat(dst); err == nil {
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return written, fmt.Errorf("stat %s: %w", dst, err)
			}
		}

		content, err := Read(name)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(dst, []byte(content), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}
