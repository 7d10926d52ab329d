package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/clonewatch/clonewatch/internal/model"
)

// VulnSample is one OLD/NEW pair loaded from the vulnerability corpus: a
// vulnerable OLD function (the sample representative for its (CVE,
// funcname) or a later duplicate, see IsSample) plus its patched
// counterpart, with the corpus's OLD/NEW path-naming preserved as IDs.
type VulnSample struct {
	VulnID    string // OLD file's stable identifier (its path as walked from the corpus root)
	CVEID     string
	FuncName  string
	VulnCode  string
	PatchCode string
	IsSample  bool // first-encountered OLD for this (CVE, funcname); false for later duplicates
}

// LoadVulnCorpus walks `<root>/<software>/<CVE>/<function-file>` and returns
// every OLD file paired with its NEW counterpart, applying the "first OLD
// per (CVE, funcname) is the sample" rule (§6).
func LoadVulnCorpus(root string) ([]VulnSample, error) {
	type olds struct {
		path string
		ff   FuncFileName
	}
	var oldFiles []olds

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ff, parseErr := ParseFuncFileName(path)
		if parseErr != nil {
			return nil // per §7 kind 3: skip files that don't match the grammar
		}
		if ff.Kind == KindOld {
			oldFiles = append(oldFiles, olds{path: path, ff: ff})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: walking vulnerability corpus %s: %w", root, err)
	}

	seenSample := make(map[string]bool) // key: CVE + "/" + funcname
	var samples []VulnSample

	for _, o := range oldFiles {
		key := o.ff.CVE + "/" + o.ff.FuncName
		isSample := !seenSample[key]
		seenSample[key] = true

		newPath := filepath.Join(filepath.Dir(o.path), o.ff.NewCounterpartName())
		vulnCode, err := os.ReadFile(o.path)
		if err != nil {
			continue
		}
		patchCode, err := os.ReadFile(newPath)
		if err != nil {
			continue // per §7 kind 3: missing patch counterpart, drop
		}

		samples = append(samples, VulnSample{
			VulnID:    o.path,
			CVEID:     o.ff.CVE,
			FuncName:  o.ff.FuncName,
			VulnCode:  string(vulnCode),
			PatchCode: string(patchCode),
			IsSample:  isSample,
		})
	}

	return samples, nil
}

// ConstructSet returns, per CVE, the single sample representative —
// exactly the "construct" set of §4.2's threshold-search inputs.
func ConstructSet(samples []VulnSample) []VulnSample {
	var out []VulnSample
	for _, s := range samples {
		if s.IsSample {
			out = append(out, s)
		}
	}
	return out
}

// Vulnerabilities converts every loaded sample into the pipeline's
// immutable model.Vulnerability record.
func Vulnerabilities(samples []VulnSample) []model.Vulnerability {
	out := make([]model.Vulnerability, 0, len(samples))
	for _, s := range samples {
		patchID := ""
		if ff, err := ParseFuncFileName(s.VulnID); err == nil {
			patchID = ff.NewCounterpartName()
		}
		out = append(out, model.Vulnerability{
			VulnID:    s.VulnID,
			CVEID:     s.CVEID,
			VulnCode:  s.VulnCode,
			PatchCode: s.PatchCode,
			PatchID:   patchID,
		})
	}
	return out
}
