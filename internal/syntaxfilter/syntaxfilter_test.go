package syntaxfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonewatch/clonewatch/internal/model"
)

const vulnSrc = `int copy(char *dst, char *src) {
	strcpy(dst, src);
	return 0;
}`

const patchSrc = `int copy(char *dst, char *src, size_t n) {
	strncpy(dst, src, n);
	return 0;
}`

func artifactsFor(vulnID, cveID string) VulnArtifacts {
	del, add := DiffLineHashes(vulnSrc, patchSrc, DefaultFilterStrings)
	return VulnArtifacts{
		VulnID:            vulnID,
		CVEID:             cveID,
		DelLineHashes:     del,
		AddLineHashes:     add,
		VulnLineHashMset:  LineHashMultiset(vulnSrc, DefaultFilterStrings),
		PatchLineHashMset: LineHashMultiset(patchSrc, DefaultFilterStrings),
		VulnASTNodes:      ASTNodes(vulnSrc),
		PatchASTNodes:     ASTNodes(patchSrc),
	}
}

func TestIdenticalCodeIsHighConfidence(t *testing.T) {
	art := artifactsFor("cve-1_vuln", "CVE-1")
	f := NewFilter(map[string]VulnArtifacts{"cve-1_vuln": art}, DefaultOptions())

	fn := model.Function{Path: "target.c", Code: vulnSrc, Candidates: []string{"cve-1_vuln"}}
	eval := f.Evaluate(fn)

	require.False(t, eval.Dropped())
	assert.Contains(t, eval.HighConfidence, "cve-1_vuln")
	assert.Nil(t, eval.Trace)
}

func TestPatchedCodeIsFiltered(t *testing.T) {
	art := artifactsFor("cve-1_vuln", "CVE-1")
	f := NewFilter(map[string]VulnArtifacts{"cve-1_vuln": art}, DefaultOptions())

	fn := model.Function{Path: "target.c", Code: patchSrc, Candidates: []string{"cve-1_vuln"}}
	eval := f.Evaluate(fn)

	assert.True(t, eval.Dropped())
}

func TestDedupByCVEKeepsHighestJv(t *testing.T) {
	survivors := []survivor{
		{vulnID: "b", cveID: "CVE-1", jv: 0.8},
		{vulnID: "a", cveID: "CVE-1", jv: 0.95},
		{vulnID: "c", cveID: "CVE-2", jv: 0.5},
	}
	winners := dedupByCVE(survivors)
	require.Len(t, winners, 2)

	byID := map[string]survivor{}
	for _, w := range winners {
		byID[w.vulnID] = w
	}
	_, hasB := byID["b"]
	assert.False(t, hasB)
	_, hasA := byID["a"]
	assert.True(t, hasA)
}

func TestLineHashExcludesBraceLines(t *testing.T) {
	_, ok := LineHash("   }  ", DefaultFilterStrings)
	assert.False(t, ok)
	_, ok = LineHash("x", DefaultFilterStrings)
	assert.False(t, ok, "single-char lines are excluded")
	h1, ok1 := LineHash("  return 0;  ", DefaultFilterStrings)
	h2, _ := LineHash("return 0;", DefaultFilterStrings)
	assert.True(t, ok1)
	assert.Equal(t, h1, h2)
}

func TestDiffLineHashesReorderingInvariance(t *testing.T) {
	a := "int a;\nint b;\nint c;\n"
	b1 := "int a;\nint b;\nint c;\nint d;\n"
	b2 := "int a;\nint c;\nint b;\nint d;\n" // unchanged region reordered

	_, add1 := DiffLineHashes(a, b1, nil)
	_, add2 := DiffLineHashes(a, b2, nil)

	countOf := func(hashes []string) map[string]int {
		m := map[string]int{}
		for _, h := range hashes {
			m[h]++
		}
		return m
	}
	assert.Equal(t, countOf(add1), countOf(add2))
}

func TestASTNodesDeterministic(t *testing.T) {
	n1 := ASTNodes(vulnSrc)
	n2 := ASTNodes(vulnSrc)
	assert.Equal(t, n1, n2)
	assert.NotEmpty(t, n1)
}
