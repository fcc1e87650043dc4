// Package meta owns the persisted metadata document: a single _meta.json
// under the private root mapping each key to its prompt config. The whole
// document is loaded into memory, mutated, and rewritten atomically on
// every change.
package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pvault/internal/config"
	"pvault/internal/errors"
	"pvault/internal/safe"
)

// SchemaVersion is the metadata document schema this build understands.
const SchemaVersion = 2

// Config is the persisted per-key record. Paths are stored relative to
// the repository root when they live under it, absolute otherwise.
type Config struct {
	SourceFile  string `json:"source_file"`
	VersionDir  string `json:"version_dir"`
	LastHash    string `json:"last_hash"`
	LastVersion int    `json:"last_version"`
}

// Document is the full metadata document.
type Document struct {
	Schema  int               `json:"schema"`
	Prompts map[string]Config `json:"prompts"`
}

// Store reads and writes the metadata document for one repository.
type Store struct {
	repoRoot string
	root     string
	path     string
}

func NewStore(repoRoot string) *Store {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		abs = repoRoot
	}
	root := filepath.Join(abs, config.RootDirName)
	return &Store{
		repoRoot: abs,
		root:     root,
		path:     filepath.Join(root, "_meta.json"),
	}
}

// Root returns the private root directory (<repo>/.prompts).
func (s *Store) Root() string { return s.root }

// RepoRoot returns the repository root paths are stored relative to.
func (s *Store) RepoRoot() string { return s.repoRoot }

// Path returns the metadata document location.
func (s *Store) Path() string { return s.path }

// EnsureInitialized creates the private root and an empty document when
// none exists yet.
func (s *Store) EnsureInitialized() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating private root: %w", err)
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return s.Save(&Document{Schema: SchemaVersion, Prompts: map[string]Config{}})
	}
	return nil
}

// Load parses the metadata document. A missing document means nothing is
// tracked yet and yields an empty document at the current schema. A
// document at any other schema fails with SchemaMismatch; the engine
// never reinterprets older layouts.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{Schema: SchemaVersion, Prompts: map[string]Config{}}, nil
		}
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	if doc.Schema != SchemaVersion {
		return nil, errors.SchemaMismatch(fmt.Sprintf(
			"unsupported metadata schema %d, expected %d; run 'pvault migrate' to upgrade",
			doc.Schema, SchemaVersion))
	}
	if doc.Prompts == nil {
		doc.Prompts = map[string]Config{}
	}
	return &doc, nil
}

// Save rewrites the full document atomically.
func (s *Store) Save(doc *Document) error {
	if doc.Prompts == nil {
		doc.Prompts = map[string]Config{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	return safe.WriteFile(s.path, append(data, '\n'))
}

// ResolvePath turns a stored path back into an absolute one.
func (s *Store) ResolvePath(stored string) string {
	if filepath.IsAbs(stored) {
		return filepath.Clean(stored)
	}
	return filepath.Join(s.repoRoot, filepath.FromSlash(stored))
}

// StorePath stores abs relative to the repository root when it lives
// under it, which keeps the document portable across clones and moves.
func (s *Store) StorePath(abs string) string {
	rel, err := filepath.Rel(s.repoRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}

// DefaultVersionDir is where versions of key live when the caller gives
// no explicit directory.
func (s *Store) DefaultVersionDir(key string) string {
	return filepath.Join(s.root, key)
}

// ManagedByRoot reports whether dir resolves to a path at or under the
// private root. It is computed, never stored.
func (s *Store) ManagedByRoot(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
