// internal/storage/badger.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"pvault/internal/errors"
	"pvault/internal/safe"
	shared "pvault/shared/types"
	"pvault/shared/utils"
)

const (
	configPrefix  = "config:"
	versionPrefix = "version:"
)

// badgerConfig is the persisted per-key record for the badger backend.
// Source files stay ordinary files on disk; only snapshots and metadata
// live in the database.
type badgerConfig struct {
	SourceFile  string `json:"source_file"`
	LastHash    string `json:"last_hash"`
	LastVersion int    `json:"last_version"`
}

// BadgerStore is a database-backed Port implementation. Version snapshots
// are values under version:<key>:<n> and per-key configs under
// config:<key>. It does not support custom version directories: snapshot
// placement is the database's business, so every ref reports the database
// path as its version dir. Version paths are logical <key>/<n> keys.
type BadgerStore struct {
	db       *badger.DB
	repoRoot string
	dbPath   string
	logger   *zap.Logger
}

func NewBadgerStore(db *badger.DB, repoRoot, dbPath string, logger *zap.Logger) *BadgerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		abs = repoRoot
	}
	return &BadgerStore{db: db, repoRoot: abs, dbPath: dbPath, logger: logger}
}

func (s *BadgerStore) EnsureInitialized() error { return nil }

func (s *BadgerStore) Close() error { return s.db.Close() }

func configKey(key string) []byte { return []byte(configPrefix + key) }

func versionKey(key string, n int) []byte {
	// Zero-padded so prefix iteration yields ascending version order.
	return []byte(fmt.Sprintf("%s%s:%010d", versionPrefix, key, n))
}

func (s *BadgerStore) getConfig(txn *badger.Txn, key string) (badgerConfig, error) {
	var cfg badgerConfig
	item, err := txn.Get(configKey(key))
	if err == badger.ErrKeyNotFound {
		return cfg, errors.NotFound(fmt.Sprintf("prompt not found: %s", key))
	}
	if err != nil {
		return cfg, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &cfg)
	})
	return cfg, err
}

func (s *BadgerStore) setConfig(txn *badger.Txn, key string, cfg badgerConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return txn.Set(configKey(key), data)
}

// scanVersions returns the existing version numbers for key, ascending.
func (s *BadgerStore) scanVersions(txn *badger.Txn, key string) ([]int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	prefix := []byte(versionPrefix + key + ":")

	it := txn.NewIterator(opts)
	defer it.Close()

	var versions []int
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		raw := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		versions = append(versions, n)
	}
	return versions, nil
}

func (s *BadgerStore) ref(key string, cfg badgerConfig) shared.PromptRef {
	return shared.PromptRef{
		Key:           key,
		SourceFile:    cfg.SourceFile,
		VersionDir:    s.dbPath,
		ManagedByRoot: true,
	}
}

func logicalPath(key string, n int) string {
	return fmt.Sprintf("%s/%d", key, n)
}

func (s *BadgerStore) KeyExists(key string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(configKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (s *BadgerStore) TrackSource(key, sourceFile, versionDir string) (shared.PromptRef, shared.PromptVersion, error) {
	var ref shared.PromptRef
	var ver shared.PromptVersion

	if versionDir != "" {
		return ref, ver, fmt.Errorf("the badger backend does not support custom version directories")
	}

	sourcePath := s.absolutize(sourceFile)
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return ref, ver, errors.SourceFileNotFound(fmt.Sprintf("source file not found: %s", sourcePath))
	}

	// Config and the initial version land in one transaction: both or
	// neither. Snapshots orphaned by a kept-versions untrack survive and
	// numbering picks up where they left off.
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(configKey(key)); err == nil {
			return errors.AlreadyExists(fmt.Sprintf(
				"prompt key %q already exists; use a different key or untrack it first", key))
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		versions, err := s.scanVersions(txn, key)
		if err != nil {
			return err
		}
		next := 1
		if len(versions) > 0 {
			next = versions[len(versions)-1] + 1
		}

		if err := txn.Set(versionKey(key, next), content); err != nil {
			return err
		}
		if err := s.setConfig(txn, key, badgerConfig{
			SourceFile:  sourcePath,
			LastHash:    utils.HashContent(content),
			LastVersion: next,
		}); err != nil {
			return err
		}
		ver = shared.PromptVersion{Key: key, Version: next, Path: logicalPath(key, next)}
		return nil
	})
	if err != nil {
		return ref, ver, err
	}

	s.logger.Info("tracking source",
		zap.String("key", key),
		zap.String("source", sourcePath),
		zap.Int("version", ver.Version),
		zap.String("backend", "badger"))

	ref = shared.PromptRef{Key: key, SourceFile: sourcePath, VersionDir: s.dbPath, ManagedByRoot: true}
	return ref, ver, nil
}

func (s *BadgerStore) GetRef(key string) (shared.PromptRef, error) {
	var ref shared.PromptRef
	err := s.db.View(func(txn *badger.Txn) error {
		cfg, err := s.getConfig(txn, key)
		if err != nil {
			return err
		}
		ref = s.ref(key, cfg)
		return nil
	})
	return ref, err
}

func (s *BadgerStore) List() ([]shared.PromptInfo, error) {
	var infos []shared.PromptInfo
	err := s.db.View(func(txn *badger.Txn) error {
		configs := map[string]badgerConfig{}

		opts := badger.DefaultIteratorOptions
		prefix := []byte(configPrefix)
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), configPrefix)
			var cfg badgerConfig
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &cfg)
			}); err != nil {
				it.Close()
				return err
			}
			configs[key] = cfg
		}
		it.Close()

		for _, key := range utils.SortedKeys(configs) {
			versions, err := s.scanVersions(txn, key)
			if err != nil {
				return err
			}
			info := shared.PromptInfo{Ref: s.ref(key, configs[key])}
			for _, n := range versions {
				info.Versions = append(info.Versions, shared.PromptVersion{
					Key: key, Version: n, Path: logicalPath(key, n),
				})
			}
			infos = append(infos, info)
		}
		return nil
	})
	return infos, err
}

func (s *BadgerStore) WriteNewVersion(key, content string) (shared.PromptVersion, error) {
	var ver shared.PromptVersion
	err := s.db.Update(func(txn *badger.Txn) error {
		cfg, err := s.getConfig(txn, key)
		if err != nil {
			return err
		}

		if err := safe.WriteString(cfg.SourceFile, content); err != nil {
			return err
		}

		versions, err := s.scanVersions(txn, key)
		if err != nil {
			return err
		}
		next := 1
		if len(versions) > 0 {
			next = versions[len(versions)-1] + 1
		}
		if err := txn.Set(versionKey(key, next), []byte(content)); err != nil {
			return err
		}

		cfg.LastHash = utils.HashContent([]byte(content))
		cfg.LastVersion = next
		if err := s.setConfig(txn, key, cfg); err != nil {
			return err
		}
		ver = shared.PromptVersion{Key: key, Version: next, Path: logicalPath(key, next)}
		return nil
	})
	return ver, err
}

func (s *BadgerStore) ReadVersion(key string, version int) (string, error) {
	var content string
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := s.getConfig(txn, key); err != nil {
			return err
		}
		versions, err := s.scanVersions(txn, key)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			return errors.VersionNotFound(fmt.Sprintf("no versions for key: %s", key))
		}

		target := version
		if target == 0 {
			target = versions[len(versions)-1]
		} else {
			found := false
			for _, n := range versions {
				if n == target {
					found = true
					break
				}
			}
			if !found {
				return errors.VersionNotFound(fmt.Sprintf("version %d not found for key: %s", target, key))
			}
		}

		item, err := txn.Get(versionKey(key, target))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			content = string(val)
			return nil
		})
	})
	return content, err
}

func (s *BadgerStore) SyncFromSource(key string, force bool) (shared.SyncResult, error) {
	var result shared.SyncResult
	err := s.db.Update(func(txn *badger.Txn) error {
		cfg, err := s.getConfig(txn, key)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(cfg.SourceFile)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.SourceFileNotFound(fmt.Sprintf("source file not found: %s", cfg.SourceFile))
			}
			return fmt.Errorf("reading source file: %w", err)
		}
		currentHash := utils.HashContent(content)

		if !force && currentHash == cfg.LastHash {
			result = shared.SyncResult{
				Key:        key,
				OldVersion: cfg.LastVersion,
				Message:    fmt.Sprintf("no changes detected for %q", key),
			}
			return nil
		}

		versions, err := s.scanVersions(txn, key)
		if err != nil {
			return err
		}
		next := 1
		if len(versions) > 0 {
			next = versions[len(versions)-1] + 1
		}
		if err := txn.Set(versionKey(key, next), content); err != nil {
			return err
		}

		oldVersion := cfg.LastVersion
		cfg.LastHash = currentHash
		cfg.LastVersion = next
		if err := s.setConfig(txn, key, cfg); err != nil {
			return err
		}
		result = shared.SyncResult{
			Key:        key,
			Changed:    true,
			OldVersion: oldVersion,
			NewVersion: next,
			Message:    fmt.Sprintf("synced %q: v%d -> v%d", key, oldVersion, next),
		}
		return nil
	})
	return result, err
}

func (s *BadgerStore) SyncAll() ([]shared.SyncResult, error) {
	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	results := make([]shared.SyncResult, 0, len(infos))
	for _, info := range infos {
		res, err := s.SyncFromSource(info.Ref.Key, false)
		if err != nil {
			if errors.Kind(err) == errors.ErrorTypeSourceFileNotFound {
				results = append(results, shared.SyncResult{Key: info.Ref.Key, Failed: true, Message: err.Error()})
				continue
			}
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *BadgerStore) DeleteLatest(key string) (shared.PromptVersion, error) {
	var ver shared.PromptVersion
	err := s.db.Update(func(txn *badger.Txn) error {
		cfg, err := s.getConfig(txn, key)
		if err != nil {
			return err
		}
		versions, err := s.scanVersions(txn, key)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			return errors.VersionNotFound(fmt.Sprintf("no versions for key: %s", key))
		}

		latest := versions[len(versions)-1]
		if err := txn.Delete(versionKey(key, latest)); err != nil {
			return err
		}

		cfg.LastVersion = 0
		if len(versions) > 1 {
			cfg.LastVersion = versions[len(versions)-2]
		}
		if err := s.setConfig(txn, key, cfg); err != nil {
			return err
		}
		ver = shared.PromptVersion{Key: key, Version: latest, Path: logicalPath(key, latest)}
		return nil
	})
	return ver, err
}

func (s *BadgerStore) DeleteAll(key string) (int, error) {
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := s.getConfig(txn, key); err != nil {
			return err
		}
		versions, err := s.scanVersions(txn, key)
		if err != nil {
			return err
		}
		for _, n := range versions {
			if err := txn.Delete(versionKey(key, n)); err != nil {
				return err
			}
		}
		count = len(versions)
		return txn.Delete(configKey(key))
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *BadgerStore) Untrack(key string, keepVersions bool) error {
	if !keepVersions {
		_, err := s.DeleteAll(key)
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := s.getConfig(txn, key); err != nil {
			return err
		}
		return txn.Delete(configKey(key))
	})
}

func (s *BadgerStore) SourceFiles() ([]shared.SourceFile, error) {
	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	files := make([]shared.SourceFile, 0, len(infos))
	for _, info := range infos {
		files = append(files, shared.SourceFile{Key: info.Ref.Key, Path: info.Ref.SourceFile})
	}
	return files, nil
}

func (s *BadgerStore) absolutize(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.repoRoot, path)
}
