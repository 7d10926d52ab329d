package syntaxfilter

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultFilterStrings are the trimmed-line contents excluded from every
// line-hash set by default (brace-only lines carry no discriminating
// signal and only add diff noise).
var DefaultFilterStrings = []string{"{", "}"}

// LineHash returns the hex SHA-256 digest of line's trimmed content, or
// ("", false) if the trimmed line should be excluded: empty/single-char
// lines and lines matching one of filterStrings.
func LineHash(line string, filterStrings []string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) <= 1 {
		return "", false
	}
	for _, f := range filterStrings {
		if trimmed == f {
			return "", false
		}
	}
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:]), true
}

// LineHashMultiset returns the multiset of line hashes over code's lines,
// in hash-count form.
func LineHashMultiset(code string, filterStrings []string) map[string]int {
	lines := strings.Split(code, "\n")
	out := make(map[string]int)
	for _, line := range lines {
		if h, ok := LineHash(line, filterStrings); ok {
			out[h]++
		}
	}
	return out
}

// DiffLineHashes computes the line-level diff of vulnCode vs patchCode and
// returns (delLineHashes, addLineHashes): the hashes of lines the patch
// removed and the hashes of lines the patch added, trimmed and filtered
// the same way as LineHashMultiset. Lines the diff matches as unchanged
// contribute to neither set; moving a line changes the diff, so unlike
// LineHashMultiset the result depends on line order.
func DiffLineHashes(vulnCode, patchCode string, filterStrings []string) (del, add []string) {
	vulnLines := strings.Split(vulnCode, "\n")
	patchLines := strings.Split(patchCode, "\n")

	ops := lcsDiff(vulnLines, patchLines)
	for _, op := range ops {
		switch op.kind {
		case diffDelete:
			if h, ok := LineHash(op.line, filterStrings); ok {
				del = append(del, h)
			}
		case diffInsert:
			if h, ok := LineHash(op.line, filterStrings); ok {
				add = append(add, h)
			}
		}
	}
	return del, add
}

type diffKind int

const (
	diffEqual diffKind = iota
	diffDelete
	diffInsert
)

type diffOp struct {
	kind diffKind
	line string
}

// lcsDiff computes a minimal line-level edit script from a to b via the
// classic longest-common-subsequence dynamic program. Function bodies are
// small enough that the O(|a|·|b|) table is not a concern.
func lcsDiff(a, b []string) []diffOp {
	n, m := len(a), len(b)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var ops []diffOp
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, diffOp{kind: diffEqual, line: a[i]})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			ops = append(ops, diffOp{kind: diffDelete, line: a[i]})
			i++
		default:
			ops = append(ops, diffOp{kind: diffInsert, line: b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, diffOp{kind: diffDelete, line: a[i]})
	}
	for ; j < m; j++ {
		ops = append(ops, diffOp{kind: diffInsert, line: b[j]})
	}
	return ops
}
