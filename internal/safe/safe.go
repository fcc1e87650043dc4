// internal/safe/safe.go
package safe

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes content to path atomically: the bytes land in a
// temporary file in the destination directory, are flushed to disk, and
// the temporary file is renamed over the destination. A reader never
// observes partial content; on failure the previous file (or its absence)
// is untouched.
func WriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pvault-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(content); err != nil {
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// WriteString is WriteFile for UTF-8 text.
func WriteString(path, content string) error {
	return WriteFile(path, []byte(content))
}
