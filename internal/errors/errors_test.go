package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, Kind(NotFound("missing")))
	assert.Equal(t, ErrorTypeVersionNotFound, Kind(VersionNotFound("v9")))
	assert.Equal(t, ErrorType(""), Kind(fmt.Errorf("plain: %w", NotFound("wrapped away"))))
	assert.Equal(t, ErrorType(""), Kind(nil))
}

func TestIsDomain(t *testing.T) {
	assert.True(t, IsDomain(SchemaMismatch("old schema")))
	assert.False(t, IsDomain(fmt.Errorf("plain")))
	assert.False(t, IsDomain(nil))
}
