package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconstruct(segments []Segment, keep Op) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Op == Equal || s.Op == keep {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func assertRoundTrip(t *testing.T, old, new string, g Granularity) {
	t.Helper()
	segments := Inline(old, new, g)
	assert.Equal(t, old, reconstruct(segments, Delete), "delete+equal must rebuild old")
	assert.Equal(t, new, reconstruct(segments, Insert), "insert+equal must rebuild new")
}

func TestInlineRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		old, new string
	}{
		{"Identical", "same text", "same text"},
		{"Empty", "", ""},
		{"OldEmpty", "", "fresh content"},
		{"NewEmpty", "gone", ""},
		{"WordSwap", "hello world", "hello there"},
		{"Multiline", "line one\nline two\n", "line one\nline 2\nline three\n"},
		{"WhitespaceOnlyChange", "a  b", "a b"},
		{"Unicode", "héllo wörld", "héllo wørld"},
		{"TabsAndNewlines", "a\tb\nc", "a\tb\nd"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertRoundTrip(t, tc.old, tc.new, Word)
			assertRoundTrip(t, tc.old, tc.new, Char)
		})
	}
}

func TestInlineWordIsolatesChangedWord(t *testing.T) {
	segments := Inline("hello world", "hello there", Word)

	require.Len(t, segments, 3)
	assert.Equal(t, Segment{Op: Equal, Text: "hello "}, segments[0])

	rest := segments[1:]
	texts := map[Op]string{}
	for _, s := range rest {
		texts[s.Op] = s.Text
	}
	assert.Equal(t, "world", texts[Delete])
	assert.Equal(t, "there", texts[Insert])
}

func TestInlineIdenticalIsSingleEqual(t *testing.T) {
	segments := Inline("one two three", "one two three", Word)
	require.Len(t, segments, 1)
	assert.Equal(t, Equal, segments[0].Op)
	assert.Equal(t, "one two three", segments[0].Text)
}

func TestInlineNoNormalization(t *testing.T) {
	// Case and whitespace differences are real differences.
	segments := Inline("Hello", "hello", Word)
	for _, s := range segments {
		assert.NotEqual(t, Equal, s.Op)
	}
}

func TestInlineCharGranularity(t *testing.T) {
	segments := Inline("cat", "cart", Char)
	assert.Equal(t, "cat", reconstruct(segments, Delete))
	assert.Equal(t, "cart", reconstruct(segments, Insert))

	// Only the inserted rune differs.
	var inserted string
	for _, s := range segments {
		if s.Op == Insert {
			inserted += s.Text
		}
	}
	assert.Equal(t, "r", inserted)
}

func TestMergeConsecutiveOps(t *testing.T) {
	segments := Inline("a b c", "x y z", Word)
	for i := 1; i < len(segments); i++ {
		assert.NotEqual(t, segments[i-1].Op, segments[i].Op,
			"consecutive segments must not share an op")
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "equal", Equal.String())
	assert.Equal(t, "insert", Insert.String())
	assert.Equal(t, "delete", Delete.String())
}
