// internal/storage/store.go
package storage

import (
	shared "pvault/shared/types"
)

// Port is the storage engine's capability interface. The engine is coded
// against it so alternative backends can be swapped in without touching
// callers; FileStore is the canonical filesystem implementation and
// BadgerStore a database-backed one.
//
// All operations are synchronous and single-process. Atomic rename is the
// only concurrency-safety primitive: concurrent readers never observe a
// half-written document or version file, but two writers racing on the
// same key can lose an update (last-writer-wins on the metadata document)
// or mint colliding version numbers. That limitation is accepted, not
// guarded against.
type Port interface {
	// EnsureInitialized creates the backend's persistent structures.
	EnsureInitialized() error

	// KeyExists reports whether key is tracked.
	KeyExists(key string) (bool, error)

	// TrackSource begins tracking sourceFile under key and captures
	// version 1 from its current content. versionDir may be empty for the
	// backend's default location. Either both the metadata record and the
	// initial version exist afterwards, or neither does.
	TrackSource(key, sourceFile, versionDir string) (shared.PromptRef, shared.PromptVersion, error)

	// GetRef resolves a tracked key's config into a ref.
	GetRef(key string) (shared.PromptRef, error)

	// List returns every tracked key, sorted, with the version history
	// derived from a live scan rather than the cached last version.
	List() ([]shared.PromptInfo, error)

	// WriteNewVersion overwrites the source file with content and captures
	// it as a new version. Empty content is accepted here; rejecting it is
	// the caller's concern.
	WriteNewVersion(key, content string) (shared.PromptVersion, error)

	// ReadVersion returns the content of the given version, or of the
	// highest-numbered one when version is 0.
	ReadVersion(key string, version int) (string, error)

	// SyncFromSource captures a new version when the source file's content
	// changed since the last sync, or unconditionally when force is set.
	SyncFromSource(key string, force bool) (shared.SyncResult, error)

	// SyncAll syncs every tracked key; a missing source file is reported
	// as a per-key failure result instead of aborting the batch.
	SyncAll() ([]shared.SyncResult, error)

	// DeleteLatest removes the highest-numbered version. The key stays
	// tracked even when no versions remain.
	DeleteLatest(key string) (shared.PromptVersion, error)

	// DeleteAll removes every version and the metadata record, returning
	// the number of versions deleted.
	DeleteAll(key string) (int, error)

	// Untrack removes the metadata record; version files are deleted only
	// when keepVersions is false, otherwise they stay on disk and can be
	// recovered by re-tracking with the same version dir.
	Untrack(key string, keepVersions bool) error

	// SourceFiles returns (key, source path) pairs for every tracked key.
	SourceFiles() ([]shared.SourceFile, error)

	// Close releases backend resources.
	Close() error
}
