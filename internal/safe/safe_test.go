package safe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("CreatesParentDirectories", func(t *testing.T) {
		path := filepath.Join(dir, "a", "b", "c.md")
		err := WriteString(path, "hello")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		path := filepath.Join(dir, "file.md")
		require.NoError(t, WriteString(path, "first"))
		require.NoError(t, WriteString(path, "second"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("EmptyContent", func(t *testing.T) {
		path := filepath.Join(dir, "empty.md")
		require.NoError(t, WriteString(path, ""))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("LeavesNoTempFiles", func(t *testing.T) {
		sub := filepath.Join(dir, "clean")
		require.NoError(t, WriteString(filepath.Join(sub, "f.md"), "x"))

		entries, err := os.ReadDir(sub)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, "f.md", entries[0].Name())
	})
}
