package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("/v", "3.md"), PathFor("alpha", 3, "/v", true))
	assert.Equal(t, filepath.Join("/v", "alpha-3.md"), PathFor("alpha", 3, "/v", false))
}

func TestScan(t *testing.T) {
	t.Run("MissingDirIsEmpty", func(t *testing.T) {
		entries, err := Scan("alpha", filepath.Join(t.TempDir(), "nope"), true)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("RootManagedAscending", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "10.md")
		touch(t, dir, "2.md")
		touch(t, dir, "1.md")
		touch(t, dir, "notes.txt")
		touch(t, dir, "x.md")

		entries, err := Scan("alpha", dir, true)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, []int{1, 2, 10}, []int{entries[0].Version, entries[1].Version, entries[2].Version})
		assert.Equal(t, filepath.Join(dir, "10.md"), entries[2].Path)
	})

	t.Run("CustomManagedMatchesOwnKeyOnly", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "alpha-1.md")
		touch(t, dir, "alpha-2.md")
		touch(t, dir, "beta-1.md")
		touch(t, dir, "alpha.md")
		touch(t, dir, "1.md")

		entries, err := Scan("alpha", dir, false)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, 1, entries[0].Version)
		assert.Equal(t, 2, entries[1].Version)
	})

	t.Run("KeyWithRegexMetaIsQuoted", func(t *testing.T) {
		// Keys never contain regex metacharacters, but the scan must not
		// treat the key as a pattern either way.
		dir := t.TempDir()
		touch(t, dir, "a_b-1.md")
		touch(t, dir, "axb-1.md")

		entries, err := Scan("a_b", dir, false)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, filepath.Join(dir, "a_b-1.md"), entries[0].Path)
	})
}

func TestNext(t *testing.T) {
	dir := t.TempDir()

	n, err := Next("alpha", dir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	touch(t, dir, "1.md")
	touch(t, dir, "7.md")

	n, err = Next("alpha", dir, true)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
