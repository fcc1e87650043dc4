package diff

func buildLCSMatrix(oldTokens, newTokens []string) [][]int {
	matrix := make([][]int, len(oldTokens)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newTokens)+1)
	}

	for i := 1; i <= len(oldTokens); i++ {
		for j := 1; j <= len(newTokens); j++ {
			if oldTokens[i-1] == newTokens[j-1] {
				matrix[i][j] = matrix[i-1][j-1] + 1
			} else {
				matrix[i][j] = max(matrix[i-1][j], matrix[i][j-1])
			}
		}
	}

	return matrix
}

// walkMatrix traces the LCS alignment back to front and emits one segment
// per token, in order.
func walkMatrix(oldTokens, newTokens []string, lcs [][]int) []Segment {
	var reversed []Segment

	i, j := len(oldTokens), len(newTokens)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && oldTokens[i-1] == newTokens[j-1]:
			reversed = append(reversed, Segment{Op: Equal, Text: oldTokens[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			reversed = append(reversed, Segment{Op: Insert, Text: newTokens[j-1]})
			j--
		default:
			reversed = append(reversed, Segment{Op: Delete, Text: oldTokens[i-1]})
			i--
		}
	}

	segments := make([]Segment, len(reversed))
	for k, s := range reversed {
		segments[len(reversed)-1-k] = s
	}
	return segments
}

// mergeSegments concatenates consecutive segments with the same op.
func mergeSegments(segments []Segment) []Segment {
	if len(segments) == 0 {
		return nil
	}

	merged := []Segment{segments[0]}
	for _, s := range segments[1:] {
		last := &merged[len(merged)-1]
		if s.Op == last.Op {
			last.Text += s.Text
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
