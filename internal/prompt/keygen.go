package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"pvault/internal/storage"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const keygenAttempts = 16

// IsValidKey reports whether key is usable: letters, digits, underscore
// and hyphen only, never empty. Path separators can never appear.
func IsValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// GenerateKey mints a fresh key that does not collide with any tracked
// one, retrying with a new candidate on collision.
func GenerateKey(store storage.Port) (string, error) {
	for i := 0; i < keygenAttempts; i++ {
		id := strings.ReplaceAll(uuid.New().String(), "-", "")
		candidate := "prompt-" + id[:8]

		exists, err := store.KeyExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique key after %d attempts", keygenAttempts)
}
