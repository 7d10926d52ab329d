package dataset

import (
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// NormalSampleSeed and NormalSampleSize fix the subsampling of the normal
// (benign) corpus, so that the resulting target set is reproducible across
// runs and across machines.
const (
	NormalSampleSeed = 20231031
	NormalSampleSize = 3000
)

// NormalFunction is one benign function drawn from the normal corpus,
// used as the negative (label 0) half of the target set (§4.2).
type NormalFunction struct {
	Path string
	Code string
}

// LoadNormalCorpus walks `<root>/<software>/<function-file>` and returns
// every function file found, sorted by path for a stable input ordering
// ahead of the fixed-seed subsample.
func LoadNormalCorpus(root string) ([]NormalFunction, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: walking normal corpus %s: %w", root, err)
	}
	sort.Strings(files)

	out := make([]NormalFunction, 0, len(files))
	for _, path := range files {
		code, err := os.ReadFile(path)
		if err != nil {
			continue // per §7 kind 3
		}
		out = append(out, NormalFunction{Path: path, Code: string(code)})
	}
	return out, nil
}

// Subsample draws a deterministic random subset of size n from the corpus
// using the fixed NormalSampleSeed. If the corpus is smaller than n, the
// whole corpus is returned.
func Subsample(corpus []NormalFunction, n int) []NormalFunction {
	if n >= len(corpus) {
		out := make([]NormalFunction, len(corpus))
		copy(out, corpus)
		return out
	}

	rng := rand.New(rand.NewSource(NormalSampleSeed))
	perm := rng.Perm(len(corpus))

	out := make([]NormalFunction, n)
	for i := 0; i < n; i++ {
		out[i] = corpus[perm[i]]
	}
	return out
}
