// internal/storage/fs.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"pvault/internal/errors"
	"pvault/internal/meta"
	"pvault/internal/safe"
	"pvault/internal/version"
	shared "pvault/shared/types"
	"pvault/shared/utils"
)

const contentCacheSize = 128

// FileStore is the filesystem storage engine. Source files and version
// snapshots are ordinary files; the metadata document under the private
// root caches the last hash and last version per key. The directory scan,
// not the cache, decides which versions exist.
type FileStore struct {
	meta   *meta.Store
	cache  *lru.Cache[string, string] // version content keyed by path
	logger *zap.Logger
}

// NewFileStore creates a filesystem engine rooted at repoRoot.
func NewFileStore(repoRoot string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, string](contentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating content cache: %w", err)
	}
	return &FileStore{
		meta:   meta.NewStore(repoRoot),
		cache:  cache,
		logger: logger,
	}, nil
}

// Meta exposes the underlying metadata store (used by the migration).
func (s *FileStore) Meta() *meta.Store { return s.meta }

func (s *FileStore) EnsureInitialized() error {
	return s.meta.EnsureInitialized()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) KeyExists(key string) (bool, error) {
	doc, err := s.meta.Load()
	if err != nil {
		return false, err
	}
	_, ok := doc.Prompts[key]
	return ok, nil
}

func (s *FileStore) refFromConfig(key string, cfg meta.Config) shared.PromptRef {
	verDir := s.meta.ResolvePath(cfg.VersionDir)
	return shared.PromptRef{
		Key:           key,
		SourceFile:    s.meta.ResolvePath(cfg.SourceFile),
		VersionDir:    verDir,
		ManagedByRoot: s.meta.ManagedByRoot(verDir),
	}
}

func (s *FileStore) TrackSource(key, sourceFile, versionDir string) (shared.PromptRef, shared.PromptVersion, error) {
	var ref shared.PromptRef
	var ver shared.PromptVersion

	if err := s.EnsureInitialized(); err != nil {
		return ref, ver, err
	}
	doc, err := s.meta.Load()
	if err != nil {
		return ref, ver, err
	}

	if existing, ok := doc.Prompts[key]; ok {
		return ref, ver, errors.AlreadyExists(fmt.Sprintf(
			"prompt key %q already exists with source %q; use a different key or untrack it first",
			key, s.meta.ResolvePath(existing.SourceFile)))
	}

	sourcePath := s.absolutize(sourceFile)
	if _, err := os.Stat(sourcePath); err != nil {
		return ref, ver, errors.SourceFileNotFound(fmt.Sprintf("source file not found: %s", sourcePath))
	}

	verDir := s.meta.DefaultVersionDir(key)
	if versionDir != "" {
		verDir = s.absolutize(versionDir)
	}
	if err := os.MkdirAll(verDir, 0755); err != nil {
		return ref, ver, fmt.Errorf("creating version directory: %w", err)
	}
	managedByRoot := s.meta.ManagedByRoot(verDir)

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return ref, ver, fmt.Errorf("reading source file: %w", err)
	}

	// A re-track of an untracked key with surviving version files picks
	// up numbering where the orphans left off.
	next, err := version.Next(key, verDir, managedByRoot)
	if err != nil {
		return ref, ver, err
	}
	verPath := version.PathFor(key, next, verDir, managedByRoot)
	if err := safe.WriteFile(verPath, content); err != nil {
		return ref, ver, err
	}

	doc.Prompts[key] = meta.Config{
		SourceFile:  s.meta.StorePath(sourcePath),
		VersionDir:  s.meta.StorePath(verDir),
		LastHash:    utils.HashContent(content),
		LastVersion: next,
	}
	if err := s.meta.Save(doc); err != nil {
		// Tracking is all-or-nothing at the single-key level.
		os.Remove(verPath)
		return ref, ver, err
	}

	s.logger.Info("tracking source",
		zap.String("key", key),
		zap.String("source", sourcePath),
		zap.Int("version", next))

	ref = shared.PromptRef{Key: key, SourceFile: sourcePath, VersionDir: verDir, ManagedByRoot: managedByRoot}
	ver = shared.PromptVersion{Key: key, Version: next, Path: verPath}
	return ref, ver, nil
}

func (s *FileStore) GetRef(key string) (shared.PromptRef, error) {
	doc, err := s.meta.Load()
	if err != nil {
		return shared.PromptRef{}, err
	}
	cfg, ok := doc.Prompts[key]
	if !ok {
		return shared.PromptRef{}, errors.NotFound(fmt.Sprintf("prompt not found: %s", key))
	}
	return s.refFromConfig(key, cfg), nil
}

func (s *FileStore) List() ([]shared.PromptInfo, error) {
	if err := s.EnsureInitialized(); err != nil {
		return nil, err
	}
	doc, err := s.meta.Load()
	if err != nil {
		return nil, err
	}

	infos := make([]shared.PromptInfo, 0, len(doc.Prompts))
	for _, key := range utils.SortedKeys(doc.Prompts) {
		ref := s.refFromConfig(key, doc.Prompts[key])
		entries, err := version.Scan(key, ref.VersionDir, ref.ManagedByRoot)
		if err != nil {
			return nil, err
		}
		versions := make([]shared.PromptVersion, 0, len(entries))
		for _, e := range entries {
			versions = append(versions, shared.PromptVersion{Key: key, Version: e.Version, Path: e.Path})
		}
		infos = append(infos, shared.PromptInfo{Ref: ref, Versions: versions})
	}
	return infos, nil
}

func (s *FileStore) WriteNewVersion(key, content string) (shared.PromptVersion, error) {
	doc, err := s.meta.Load()
	if err != nil {
		return shared.PromptVersion{}, err
	}
	cfg, ok := doc.Prompts[key]
	if !ok {
		return shared.PromptVersion{}, errors.NotFound(fmt.Sprintf("prompt not found: %s", key))
	}
	ref := s.refFromConfig(key, cfg)

	if err := safe.WriteString(ref.SourceFile, content); err != nil {
		return shared.PromptVersion{}, err
	}

	next, err := version.Next(key, ref.VersionDir, ref.ManagedByRoot)
	if err != nil {
		return shared.PromptVersion{}, err
	}
	verPath := version.PathFor(key, next, ref.VersionDir, ref.ManagedByRoot)
	if err := safe.WriteString(verPath, content); err != nil {
		return shared.PromptVersion{}, err
	}

	cfg.LastHash = utils.HashContent([]byte(content))
	cfg.LastVersion = next
	doc.Prompts[key] = cfg
	if err := s.meta.Save(doc); err != nil {
		return shared.PromptVersion{}, err
	}

	s.logger.Info("wrote new version", zap.String("key", key), zap.Int("version", next))
	return shared.PromptVersion{Key: key, Version: next, Path: verPath}, nil
}

func (s *FileStore) ReadVersion(key string, ver int) (string, error) {
	ref, err := s.GetRef(key)
	if err != nil {
		return "", err
	}
	entries, err := version.Scan(key, ref.VersionDir, ref.ManagedByRoot)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.VersionNotFound(fmt.Sprintf("no versions for key: %s", key))
	}

	var path string
	if ver == 0 {
		path = entries[len(entries)-1].Path
	} else {
		for _, e := range entries {
			if e.Version == ver {
				path = e.Path
				break
			}
		}
		if path == "" {
			return "", errors.VersionNotFound(fmt.Sprintf("version %d not found for key: %s", ver, key))
		}
	}

	// Version files are immutable, so caching by path is safe.
	if content, ok := s.cache.Get(path); ok {
		return content, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading version file: %w", err)
	}
	content := string(data)
	s.cache.Add(path, content)
	return content, nil
}

func (s *FileStore) SyncFromSource(key string, force bool) (shared.SyncResult, error) {
	doc, err := s.meta.Load()
	if err != nil {
		return shared.SyncResult{}, err
	}
	cfg, ok := doc.Prompts[key]
	if !ok {
		return shared.SyncResult{}, errors.NotFound(fmt.Sprintf("prompt not found: %s", key))
	}
	ref := s.refFromConfig(key, cfg)

	content, err := os.ReadFile(ref.SourceFile)
	if err != nil {
		if os.IsNotExist(err) {
			return shared.SyncResult{}, errors.SourceFileNotFound(fmt.Sprintf("source file not found: %s", ref.SourceFile))
		}
		return shared.SyncResult{}, fmt.Errorf("reading source file: %w", err)
	}
	currentHash := utils.HashContent(content)

	if !force && currentHash == cfg.LastHash {
		return shared.SyncResult{
			Key:        key,
			Changed:    false,
			OldVersion: cfg.LastVersion,
			Message:    fmt.Sprintf("no changes detected for %q", key),
		}, nil
	}

	oldVersion := cfg.LastVersion
	next, err := version.Next(key, ref.VersionDir, ref.ManagedByRoot)
	if err != nil {
		return shared.SyncResult{}, err
	}
	verPath := version.PathFor(key, next, ref.VersionDir, ref.ManagedByRoot)
	if err := safe.WriteFile(verPath, content); err != nil {
		return shared.SyncResult{}, err
	}

	cfg.LastHash = currentHash
	cfg.LastVersion = next
	doc.Prompts[key] = cfg
	if err := s.meta.Save(doc); err != nil {
		return shared.SyncResult{}, err
	}

	s.logger.Info("synced from source",
		zap.String("key", key),
		zap.Int("old_version", oldVersion),
		zap.Int("new_version", next),
		zap.Bool("force", force))

	return shared.SyncResult{
		Key:        key,
		Changed:    true,
		OldVersion: oldVersion,
		NewVersion: next,
		Message:    fmt.Sprintf("synced %q: v%d -> v%d", key, oldVersion, next),
	}, nil
}

func (s *FileStore) SyncAll() ([]shared.SyncResult, error) {
	doc, err := s.meta.Load()
	if err != nil {
		return nil, err
	}

	results := make([]shared.SyncResult, 0, len(doc.Prompts))
	for _, key := range utils.SortedKeys(doc.Prompts) {
		res, err := s.SyncFromSource(key, false)
		if err != nil {
			if errors.Kind(err) == errors.ErrorTypeSourceFileNotFound {
				// Partial failure is expected here and reported per key.
				results = append(results, shared.SyncResult{Key: key, Failed: true, Message: err.Error()})
				continue
			}
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *FileStore) DeleteLatest(key string) (shared.PromptVersion, error) {
	ref, err := s.GetRef(key)
	if err != nil {
		return shared.PromptVersion{}, err
	}
	entries, err := version.Scan(key, ref.VersionDir, ref.ManagedByRoot)
	if err != nil {
		return shared.PromptVersion{}, err
	}
	if len(entries) == 0 {
		return shared.PromptVersion{}, errors.VersionNotFound(fmt.Sprintf("no versions for key: %s", key))
	}

	latest := entries[len(entries)-1]
	if err := os.Remove(latest.Path); err != nil {
		return shared.PromptVersion{}, fmt.Errorf("removing version file: %w", err)
	}
	s.cache.Remove(latest.Path)

	doc, err := s.meta.Load()
	if err != nil {
		return shared.PromptVersion{}, err
	}
	cfg := doc.Prompts[key]
	if len(entries) > 1 {
		cfg.LastVersion = entries[len(entries)-2].Version
	} else {
		cfg.LastVersion = 0
	}
	doc.Prompts[key] = cfg
	if err := s.meta.Save(doc); err != nil {
		return shared.PromptVersion{}, err
	}

	s.logger.Info("deleted latest version", zap.String("key", key), zap.Int("version", latest.Version))
	return shared.PromptVersion{Key: key, Version: latest.Version, Path: latest.Path}, nil
}

func (s *FileStore) DeleteAll(key string) (int, error) {
	ref, err := s.GetRef(key)
	if err != nil {
		return 0, err
	}
	entries, err := version.Scan(key, ref.VersionDir, ref.ManagedByRoot)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := os.Remove(e.Path); err != nil {
			return 0, fmt.Errorf("removing version file: %w", err)
		}
		s.cache.Remove(e.Path)
	}
	if ref.ManagedByRoot {
		// Best effort; the directory may hold unrelated files.
		if err := os.Remove(ref.VersionDir); err != nil && !os.IsNotExist(err) {
			s.logger.Debug("version directory not removed",
				zap.String("key", key), zap.Error(err))
		}
	}

	doc, err := s.meta.Load()
	if err != nil {
		return 0, err
	}
	delete(doc.Prompts, key)
	if err := s.meta.Save(doc); err != nil {
		return 0, err
	}

	s.logger.Info("deleted all versions", zap.String("key", key), zap.Int("count", len(entries)))
	return len(entries), nil
}

func (s *FileStore) Untrack(key string, keepVersions bool) error {
	exists, err := s.KeyExists(key)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotFound(fmt.Sprintf("prompt not found: %s", key))
	}

	if !keepVersions {
		_, err := s.DeleteAll(key)
		return err
	}

	doc, err := s.meta.Load()
	if err != nil {
		return err
	}
	delete(doc.Prompts, key)
	return s.meta.Save(doc)
}

func (s *FileStore) SourceFiles() ([]shared.SourceFile, error) {
	doc, err := s.meta.Load()
	if err != nil {
		return nil, err
	}
	files := make([]shared.SourceFile, 0, len(doc.Prompts))
	for _, key := range utils.SortedKeys(doc.Prompts) {
		files = append(files, shared.SourceFile{Key: key, Path: s.meta.ResolvePath(doc.Prompts[key].SourceFile)})
	}
	return files, nil
}

func (s *FileStore) absolutize(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.meta.RepoRoot(), path)
}
