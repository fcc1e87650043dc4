// Domain records shared across the storage backends and the CLI.
package shared

// PromptRef identifies a tracked prompt and where its files live.
type PromptRef struct {
	Key           string `json:"key"`
	SourceFile    string `json:"source_file"`
	VersionDir    string `json:"version_dir"`
	ManagedByRoot bool   `json:"managed_by_root"`
}

// PromptVersion is one immutable numbered snapshot of a prompt.
type PromptVersion struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Path    string `json:"path"`
}

// PromptInfo pairs a ref with its full version history, ascending.
type PromptInfo struct {
	Ref      PromptRef       `json:"ref"`
	Versions []PromptVersion `json:"versions"`
}

// SyncResult reports the outcome of syncing one key from its source file.
// Failed marks a per-key failure inside a batch sync; OldVersion and
// NewVersion are 0 when not applicable.
type SyncResult struct {
	Key        string `json:"key"`
	Changed    bool   `json:"changed"`
	Failed     bool   `json:"failed"`
	OldVersion int    `json:"old_version"`
	NewVersion int    `json:"new_version"`
	Message    string `json:"message"`
}

// SourceFile pairs a key with the absolute path of its source of truth.
type SourceFile struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}
