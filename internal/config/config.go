// internal/config/config.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// RootDirName is the private directory holding metadata and root-managed
// version files, resolved relative to the repository root.
const RootDirName = ".prompts"

type Config struct {
	// Backend selects the storage engine: "fs" (default) or "badger".
	Backend string `json:"backend"`

	Database struct {
		Path string `json:"path"`
	} `json:"database"`

	LogLevel string `json:"log_level"` // debug, info, warn, error
}

func Default() *Config {
	cfg := &Config{
		Backend:  "fs",
		LogLevel: "info",
	}
	return cfg
}

// Load reads the optional config file at <root>/.prompts/config.json.
// A missing file yields the defaults.
func Load(repoRoot string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(filepath.Join(repoRoot, RootDirName, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = "fs"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// FindRoot walks up from startDir looking for a repository marker (an
// existing .prompts directory, else a .git directory). When neither is
// found the starting directory itself is the root.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for _, marker := range []string{RootDirName, ".git"} {
		cur := dir
		for {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return cur, nil
			}
			parent := filepath.Dir(cur)
			if parent == cur {
				break
			}
			cur = parent
		}
	}

	return dir, nil
}
