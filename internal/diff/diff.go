// internal/diff/diff.go
package diff

// Op classifies a diff segment.
type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

func (o Op) String() string {
	switch o {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	default:
		return "equal"
	}
}

// Granularity selects the token unit the diff aligns on.
type Granularity string

const (
	Word Granularity = "word"
	Char Granularity = "char"
)

// Segment is one run of the diff. Consecutive tokens with the same op are
// merged into a single segment.
type Segment struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// Result is the inline diff between two versions of a prompt.
type Result struct {
	Key      string    `json:"key"`
	V1       int       `json:"v1"`
	V2       int       `json:"v2"`
	Segments []Segment `json:"segments"`
}

// Inline computes a token-level diff between old and new. No
// normalization is applied: concatenating the equal and delete segments
// reproduces old exactly, and the equal and insert segments reproduce new
// exactly.
func Inline(old, new string, granularity Granularity) []Segment {
	oldTokens := tokenize(old, granularity)
	newTokens := tokenize(new, granularity)

	lcs := buildLCSMatrix(oldTokens, newTokens)
	return mergeSegments(walkMatrix(oldTokens, newTokens, lcs))
}

// tokenize splits text into tokens whose concatenation is the input.
// Word granularity keeps whitespace runs as their own tokens so the
// round-trip stays exact; char granularity emits one token per rune.
func tokenize(text string, granularity Granularity) []string {
	if text == "" {
		return nil
	}

	if granularity == Char {
		runes := []rune(text)
		tokens := make([]string, len(runes))
		for i, r := range runes {
			tokens[i] = string(r)
		}
		return tokens
	}

	var tokens []string
	runes := []rune(text)
	start := 0
	inSpace := isSpace(runes[0])
	for i := 1; i < len(runes); i++ {
		if isSpace(runes[i]) != inSpace {
			tokens = append(tokens, string(runes[start:i]))
			start = i
			inSpace = !inSpace
		}
	}
	tokens = append(tokens, string(runes[start:]))
	return tokens
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
