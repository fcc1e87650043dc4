// Package prompt is the orchestration layer the CLI talks to: key
// generation and validation, the empty-content gate, diffing, watching,
// and archive export, all on top of a storage.Port.
package prompt

import (
	"fmt"

	"go.uber.org/zap"

	"pvault/internal/diff"
	"pvault/internal/errors"
	"pvault/internal/storage"
	shared "pvault/shared/types"
)

type Service struct {
	store  storage.Port
	logger *zap.Logger
}

func NewService(store storage.Port, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := store.EnsureInitialized(); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return &Service{store: store, logger: logger}, nil
}

func (s *Service) Close() error { return s.store.Close() }

// Track begins tracking sourceFile. An empty key asks for a generated
// one; an empty versionDir uses the backend default.
func (s *Service) Track(sourceFile, key, versionDir string) (shared.PromptRef, shared.PromptVersion, error) {
	if key == "" {
		generated, err := GenerateKey(s.store)
		if err != nil {
			return shared.PromptRef{}, shared.PromptVersion{}, err
		}
		key = generated
	}
	if !IsValidKey(key) {
		return shared.PromptRef{}, shared.PromptVersion{}, errors.InvalidKey(fmt.Sprintf("invalid key: %q", key))
	}
	return s.store.TrackSource(key, sourceFile, versionDir)
}

// Update overwrites the source file with content and captures it as a new
// version. The empty-content rule lives here, not in the storage engine.
func (s *Service) Update(key, content string) (shared.PromptVersion, error) {
	if content == "" {
		return shared.PromptVersion{}, errors.NoContent("no prompt text provided")
	}
	if _, err := s.store.GetRef(key); err != nil {
		return shared.PromptVersion{}, err
	}
	return s.store.WriteNewVersion(key, content)
}

func (s *Service) Sync(key string, force bool) (shared.SyncResult, error) {
	return s.store.SyncFromSource(key, force)
}

func (s *Service) SyncAll() ([]shared.SyncResult, error) {
	return s.store.SyncAll()
}

func (s *Service) Untrack(key string, keepVersions bool) error {
	return s.store.Untrack(key, keepVersions)
}

func (s *Service) List() ([]shared.PromptInfo, error) {
	return s.store.List()
}

// SourceFiles lists (key, source path) pairs, for hook-style callers that
// check whether tracked sources are in sync.
func (s *Service) SourceFiles() ([]shared.SourceFile, error) {
	return s.store.SourceFiles()
}

// DeleteLatest removes the newest version; the key stays tracked.
func (s *Service) DeleteLatest(key string) (shared.PromptVersion, error) {
	return s.store.DeleteLatest(key)
}

// DeleteAll removes every version and untracks the key.
func (s *Service) DeleteAll(key string) (int, error) {
	return s.store.DeleteAll(key)
}

// Load returns a version's content; version 0 means latest.
func (s *Service) Load(key string, version int) (string, error) {
	return s.store.ReadVersion(key, version)
}

// Diff loads two versions and builds the inline diff between them. An
// unknown granularity falls back to word.
func (s *Service) Diff(key string, v1, v2 int, granularity diff.Granularity) (*diff.Result, error) {
	if granularity != diff.Word && granularity != diff.Char {
		granularity = diff.Word
	}

	old, err := s.store.ReadVersion(key, v1)
	if err != nil {
		return nil, err
	}
	new, err := s.store.ReadVersion(key, v2)
	if err != nil {
		return nil, err
	}

	return &diff.Result{
		Key:      key,
		V1:       v1,
		V2:       v2,
		Segments: diff.Inline(old, new, granularity),
	}, nil
}
