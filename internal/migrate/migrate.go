// Package migrate upgrades the persisted metadata document between
// schema versions. It is an offline, one-shot transform: the steady-state
// engine refuses to run on any schema but the current one.
package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"pvault/internal/meta"
	"pvault/internal/safe"
	"pvault/internal/version"
	"pvault/shared/utils"
)

// Result reports what a migration did.
type Result struct {
	Migrated   int
	BackupPath string
	SourceDir  string
}

// v1Document is the old flat layout: default-managed prompts were implied
// by directories under the private root, custom ones listed explicitly.
type v1Document struct {
	Schema     int               `json:"schema"`
	CustomDirs map[string]string `json:"custom_dirs"`
}

type discovered struct {
	key        string
	versionDir string
	entries    []version.Entry
}

// V1ToV2 rewrites a schema-1 document into the schema-2 per-key layout.
// Each prompt gains a source file (created under sourceDir from its
// latest snapshot when missing); the old document survives as a .bak.
func V1ToV2(repoRoot, sourceDir string, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store := meta.NewStore(repoRoot)
	metaPath := store.Path()
	if sourceDir == "" {
		sourceDir = filepath.Join(store.RepoRoot(), "prompts")
	}
	result := &Result{SourceDir: sourceDir}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no metadata document, nothing to migrate", zap.String("path", metaPath))
			return result, nil
		}
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var v1 v1Document
	if err := json.Unmarshal(raw, &v1); err != nil {
		return nil, fmt.Errorf("parsing v1 metadata: %w", err)
	}
	if v1.Schema >= meta.SchemaVersion {
		logger.Info("metadata already migrated", zap.Int("schema", v1.Schema))
		return result, nil
	}

	backupPath := metaPath + ".v1.bak"
	if err := safe.WriteFile(backupPath, raw); err != nil {
		return nil, fmt.Errorf("backing up v1 metadata: %w", err)
	}
	result.BackupPath = backupPath

	prompts, err := discover(store, v1.CustomDirs)
	if err != nil {
		return nil, err
	}

	doc := &meta.Document{Schema: meta.SchemaVersion, Prompts: map[string]meta.Config{}}
	for _, p := range prompts {
		latest := p.entries[len(p.entries)-1]

		sourceFile := filepath.Join(sourceDir, p.key+".md")
		if _, err := os.Stat(sourceFile); os.IsNotExist(err) {
			snapshot, err := os.ReadFile(latest.Path)
			if err != nil {
				return nil, fmt.Errorf("reading latest snapshot for %q: %w", p.key, err)
			}
			if err := safe.WriteFile(sourceFile, snapshot); err != nil {
				return nil, err
			}
			logger.Info("created source file from latest snapshot",
				zap.String("key", p.key),
				zap.String("source", sourceFile),
				zap.Int("version", latest.Version))
		}

		content, err := os.ReadFile(sourceFile)
		if err != nil {
			return nil, fmt.Errorf("reading source file for %q: %w", p.key, err)
		}

		doc.Prompts[p.key] = meta.Config{
			SourceFile:  store.StorePath(sourceFile),
			VersionDir:  store.StorePath(p.versionDir),
			LastHash:    utils.HashContent(content),
			LastVersion: latest.Version,
		}
	}

	if err := store.Save(doc); err != nil {
		return nil, err
	}

	result.Migrated = len(doc.Prompts)
	logger.Info("migration complete",
		zap.Int("migrated", result.Migrated),
		zap.String("backup", backupPath))
	return result, nil
}

// discover finds every v1 prompt that has at least one version file:
// directories under the private root (default-managed) plus the explicit
// custom_dirs entries.
func discover(store *meta.Store, customDirs map[string]string) ([]discovered, error) {
	var prompts []discovered

	dirEntries, err := os.ReadDir(store.Root())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading private root: %w", err)
	}
	for _, de := range dirEntries {
		if !de.IsDir() || de.Name()[0] == '_' || de.Name()[0] == '.' {
			continue
		}
		key := de.Name()
		if _, isCustom := customDirs[key]; isCustom {
			continue
		}
		dir := filepath.Join(store.Root(), key)
		entries, err := version.Scan(key, dir, true)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			prompts = append(prompts, discovered{key: key, versionDir: dir, entries: entries})
		}
	}

	for _, key := range utils.SortedKeys(customDirs) {
		dir := customDirs[key]
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(store.RepoRoot(), dir)
		}
		entries, err := version.Scan(key, dir, false)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			prompts = append(prompts, discovered{key: key, versionDir: dir, entries: entries})
		}
	}

	return prompts, nil
}
