package carve

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonewatch/clonewatch/internal/exec"
)

type fakeExecutor struct {
	result *exec.ExecutionResult
	err    error
}

func (f *fakeExecutor) Run(command string, args ...string) (*exec.ExecutionResult, error) {
	return f.result, f.err
}

func TestCarveParsesCtagsOutput(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "copy.c")
	src := "int copy(char *dst, char *src) {\n\tsize_t n = strlen(src);\n\tstrcpy(dst, src);\n\tdst[n] = 0;\n\tn = 0;\n\treturn 0;\n}\n"
	require.NoError(t, os.WriteFile(srcPath, []byte(src), 0o644))

	ndjson := fmt.Sprintf(`{"name":"copy","path":%q,"line":1,"end":7,"kind":"function"}`+"\n", srcPath)
	fe := &fakeExecutor{result: &exec.ExecutionResult{Stdout: ndjson, ExitCode: 0}}
	carver := NewCtagsCarver(fe, DefaultThresholds())

	out, err := carver.Carve(dir)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Path, "copy@@@")
	assert.Contains(t, out[0].Source, "strcpy")
}

func TestCarveDiscardsBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "tiny.c")
	src := "int f() {\n\treturn 0;\n}\n"
	require.NoError(t, os.WriteFile(srcPath, []byte(src), 0o644))

	ndjson := fmt.Sprintf(`{"name":"f","path":%q,"line":1,"end":3,"kind":"function"}`+"\n", srcPath)
	fe := &fakeExecutor{result: &exec.ExecutionResult{Stdout: ndjson, ExitCode: 0}}
	carver := NewCtagsCarver(fe, DefaultThresholds())

	out, err := carver.Carve(dir)
	require.NoError(t, err)
	assert.Empty(t, out)
}
