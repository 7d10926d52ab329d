package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLength(t *testing.T) {
	require.Equal(t, 42, len(apis))
	require.Equal(t, 42, len(operators))
	require.Equal(t, 77, len(keywords))
	require.Equal(t, 20, len(formatLetters))
	require.Equal(t, 161+20, VectorLength)
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor()
	code := `int copy(char *dst, const char *src) {
		free(dst);
		if (dst == NULL || src == NULL) return -1;
		printf("%d items at %s\n", 3, "x");
		return 0;
	}`

	v1 := e.Extract(code)
	v2 := e.Extract(code)
	assert.Equal(t, v1, v2)
	assert.LessOrEqual(t, v1.Popcount(), VectorLength)

	assert.True(t, v1[apiOffset+apiIndex["copy"]])
	assert.True(t, v1[apiOffset+apiIndex["free"]])
	assert.True(t, v1[opOffset+opIndex["=="]])
	assert.True(t, v1[opOffset+opIndex["||"]])
	assert.True(t, v1[kwOffset+kwIndex["if"]])
	assert.True(t, v1[kwOffset+kwIndex["return"]])
	assert.True(t, v1[fmtOffset+fmtIndex["d"]])
	assert.True(t, v1[fmtOffset+fmtIndex["s"]])
}

func TestExtractIgnoresComments(t *testing.T) {
	e := NewExtractor()
	code := "// free(a);\nint f() { /* alloc(1) */ return 1; }"
	v := e.Extract(code)
	assert.False(t, v[apiOffset+apiIndex["free"]])
	assert.False(t, v[apiOffset+apiIndex["alloc"]])
	assert.True(t, v[kwOffset+kwIndex["return"]])
}

func TestExtractOperatorMergeIdempotent(t *testing.T) {
	e := NewExtractor()
	code := "a = b && c;"
	v1 := e.Extract(code)
	v2 := e.Extract(code + " && c && c;")
	// concatenating extra operators already present must not change the
	// bits already set for those operators.
	assert.True(t, v1[opOffset+opIndex["&&"]])
	assert.True(t, v2[opOffset+opIndex["&&"]])
}

func TestExtractWordSpelledOperators(t *testing.T) {
	e := NewExtractor()
	code := "bool ok = (a and b) or not c;"
	v := e.Extract(code)
	assert.True(t, v[opOffset+opIndex["and"]])
	assert.True(t, v[opOffset+opIndex["or"]])
	assert.True(t, v[opOffset+opIndex["not"]])
	// word-spelled operators are tracked as operators, not keywords.
	_, isKeyword := kwIndex["and"]
	assert.False(t, isKeyword)
}

func TestOperatorStateMachineMergesMultiChar(t *testing.T) {
	osm := newOperatorStateMachine()
	for _, b := range []byte("<<=") {
		osm.feed(b)
	}
	v := NewVector()
	osm.flushInto(v)
	assert.True(t, v[opOffset+opIndex["<<="]])
}
