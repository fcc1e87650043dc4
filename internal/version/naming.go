// Package version maps (key, version number) pairs to version file names
// and recovers the set of existing versions from a directory listing.
//
// Two naming policies exist. Root-managed prompts keep their versions in a
// private per-key directory and use bare numbers (<n>.md). Custom
// directories may be shared between prompts, so file names carry the key
// (<key>-<n>.md).
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var rootManagedPattern = regexp.MustCompile(`^(\d+)\.md$`)

// Entry is one existing version discovered by Scan.
type Entry struct {
	Version int
	Path    string
}

// PathFor returns the file path for version n of key. Pure, no I/O.
func PathFor(key string, n int, versionDir string, managedByRoot bool) string {
	if managedByRoot {
		return filepath.Join(versionDir, fmt.Sprintf("%d.md", n))
	}
	return filepath.Join(versionDir, fmt.Sprintf("%s-%d.md", key, n))
}

// Scan lists versionDir and returns every version file present, ascending
// by version number. Entries that do not match the applicable naming
// policy are ignored; a missing directory yields an empty result. This is
// the single source of truth for which versions currently exist.
func Scan(key, versionDir string, managedByRoot bool) ([]Entry, error) {
	dirEntries, err := os.ReadDir(versionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading version directory: %w", err)
	}

	pattern := rootManagedPattern
	if !managedByRoot {
		pattern = regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `-(\d+)\.md$`)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Version: n, Path: filepath.Join(versionDir, de.Name())})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// Next returns the version number a new snapshot should get: one greater
// than the highest existing version, or 1 when none exist.
func Next(key, versionDir string, managedByRoot bool) (int, error) {
	entries, err := Scan(key, versionDir, managedByRoot)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 1, nil
	}
	return entries[len(entries)-1].Version + 1, nil
}
