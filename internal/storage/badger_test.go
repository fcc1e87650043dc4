package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvault/internal/errors"
)

func newTestBadgerStore(t *testing.T) (*BadgerStore, string) {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	return NewBadgerStore(db, root, "memory", nil), root
}

func TestBadgerTrackAndRead(t *testing.T) {
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "hello")

	ref, ver, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)
	assert.True(t, ref.ManagedByRoot)
	assert.Equal(t, source, ref.SourceFile)
	assert.Equal(t, 1, ver.Version)
	assert.Equal(t, "alpha/1", ver.Path)

	content, err := s.ReadVersion("alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestBadgerRejectsCustomVersionDir(t *testing.T) {
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "hello")

	_, _, err := s.TrackSource("alpha", source, filepath.Join(root, "custom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom version directories")
}

func TestBadgerTrackDuplicateKey(t *testing.T) {
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "hello")

	_, _, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)

	_, _, err = s.TrackSource("alpha", source, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeAlreadyExists, errors.Kind(err))
}

func TestBadgerSyncCycle(t *testing.T) {
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "v1")
	_, _, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)

	result, err := s.SyncFromSource("alpha", false)
	require.NoError(t, err)
	assert.False(t, result.Changed)

	writeSource(t, source, "v2")
	result, err = s.SyncFromSource("alpha", false)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, result.OldVersion)
	assert.Equal(t, 2, result.NewVersion)

	v1, err := s.ReadVersion("alpha", 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", v1)
	latest, err := s.ReadVersion("alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, "v2", latest)

	// Force duplicates the latest content
	result, err = s.SyncFromSource("alpha", true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.NewVersion)
}

func TestBadgerWriteNewVersionUpdatesSource(t *testing.T) {
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "original")
	_, _, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)

	ver, err := s.WriteNewVersion("alpha", "edited")
	require.NoError(t, err)
	assert.Equal(t, 2, ver.Version)

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(data))

	result, err := s.SyncFromSource("alpha", false)
	require.NoError(t, err)
	assert.False(t, result.Changed)
}

func TestBadgerDeleteLatestAndAll(t *testing.T) {
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "a")
	_, _, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)
	writeSource(t, source, "b")
	_, err = s.SyncFromSource("alpha", false)
	require.NoError(t, err)

	latest, err := s.DeleteLatest("alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	content, err := s.ReadVersion("alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, "a", content)

	count, err := s.DeleteAll("alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	exists, err := s.KeyExists("alpha")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.GetRef("alpha")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.Kind(err))
}

func TestBadgerUntrackKeepVersionsDropsConfigOnly(t *testing.T) {
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "original v1")
	_, _, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)
	writeSource(t, source, "original v2")
	_, err = s.SyncFromSource("alpha", false)
	require.NoError(t, err)

	require.NoError(t, s.Untrack("alpha", true))

	exists, err := s.KeyExists("alpha")
	require.NoError(t, err)
	assert.False(t, exists)

	// Orphaned snapshots survive untouched and re-tracking resumes the
	// numbering after them
	writeSource(t, source, "replacement")
	_, ver, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)
	assert.Equal(t, 3, ver.Version)

	v1, err := s.ReadVersion("alpha", 1)
	require.NoError(t, err)
	assert.Equal(t, "original v1", v1)
	latest, err := s.ReadVersion("alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, "replacement", latest)
}

func TestBadgerListOrderedByKey(t *testing.T) {
	s, root := newTestBadgerStore(t)

	for _, key := range []string{"zeta", "alpha", "mid"} {
		source := filepath.Join(root, key+".md")
		writeSource(t, source, key+" content")
		_, _, err := s.TrackSource(key, source, "")
		require.NoError(t, err)
	}

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", infos[0].Ref.Key)
	assert.Equal(t, "mid", infos[1].Ref.Key)
	assert.Equal(t, "zeta", infos[2].Ref.Key)
}

func TestBadgerSyncAllPartialFailure(t *testing.T) {
	s, root := newTestBadgerStore(t)

	good := filepath.Join(root, "good.md")
	bad := filepath.Join(root, "bad.md")
	writeSource(t, good, "good")
	writeSource(t, bad, "bad")

	_, _, err := s.TrackSource("good", good, "")
	require.NoError(t, err)
	_, _, err = s.TrackSource("bad", bad, "")
	require.NoError(t, err)

	writeSource(t, good, "good modified")
	require.NoError(t, os.Remove(bad))

	results, err := s.SyncAll()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Failed)
	assert.Contains(t, results[0].Message, "source file not found")
	assert.True(t, results[1].Changed)
	assert.False(t, results[1].Failed)
}

func TestBadgerVersionOrderingPastNine(t *testing.T) {
	// Zero-padded keys keep iteration numeric past single digits.
	s, root := newTestBadgerStore(t)

	source := filepath.Join(root, "prompt.md")
	writeSource(t, source, "v1")
	_, _, err := s.TrackSource("alpha", source, "")
	require.NoError(t, err)

	for i := 2; i <= 12; i++ {
		_, err := s.SyncFromSource("alpha", true)
		require.NoError(t, err)
	}

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos[0].Versions, 12)
	assert.Equal(t, 12, infos[0].Versions[11].Version)

	latest, err := s.ReadVersion("alpha", 0)
	require.NoError(t, err)
	assert.Equal(t, "v1", latest)
}
