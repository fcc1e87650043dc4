package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvault/internal/errors"
)

func TestLoadMissingDocument(t *testing.T) {
	s := NewStore(t.TempDir())

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, doc.Schema)
	assert.Empty(t, doc.Prompts)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.EnsureInitialized())

	doc := &Document{
		Schema: SchemaVersion,
		Prompts: map[string]Config{
			"alpha": {
				SourceFile:  "prompts/alpha.md",
				VersionDir:  ".prompts/alpha",
				LastHash:    "sha256:abc",
				LastVersion: 3,
			},
		},
	}
	require.NoError(t, s.Save(doc))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, doc.Prompts, loaded.Prompts)
}

func TestSchemaMismatch(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	require.NoError(t, os.MkdirAll(s.Root(), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"schema": 1, "prompts": {}}`), 0644))

	_, err := s.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeSchemaMismatch, errors.Kind(err))
	assert.Contains(t, err.Error(), "migrate")
}

func TestNullLastHashAccepted(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	require.NoError(t, os.MkdirAll(s.Root(), 0755))
	raw := `{"schema": 2, "prompts": {"a": {"source_file": "a.md", "version_dir": ".prompts/a", "last_hash": null, "last_version": 0}}}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(raw), 0644))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Prompts["a"].LastHash)
}

func TestPathStorage(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	t.Run("UnderRepoStoredRelative", func(t *testing.T) {
		abs := filepath.Join(root, "prompts", "a.md")
		stored := s.StorePath(abs)
		assert.Equal(t, "prompts/a.md", stored)
		assert.Equal(t, abs, s.ResolvePath(stored))
	})

	t.Run("OutsideRepoStoredAbsolute", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "elsewhere.md")
		stored := s.StorePath(outside)
		assert.Equal(t, outside, stored)
		assert.Equal(t, outside, s.ResolvePath(stored))
	})
}

func TestManagedByRoot(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	assert.True(t, s.ManagedByRoot(s.DefaultVersionDir("alpha")))
	assert.True(t, s.ManagedByRoot(s.Root()))
	assert.False(t, s.ManagedByRoot(filepath.Join(root, "versions", "system")))
	// Sibling directory whose name shares the root's prefix.
	assert.False(t, s.ManagedByRoot(s.Root()+"x"))
}
