// Package dataset loads the vulnerability (OLD/NEW) corpus and the normal
// code corpus used to construct the SFBL and to exercise the pipeline, and
// applies the fixed-seed subsampling rule to the normal corpus.
package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind distinguishes a vulnerable (pre-patch) sample from its patched
// counterpart, per the `<...>_<OLD|NEW>.<ext>` filename grammar.
type Kind int

const (
	KindOld Kind = iota
	KindNew
)

func (k Kind) String() string {
	if k == KindNew {
		return "NEW"
	}
	return "OLD"
}

// FuncFileName is a parsed `<cve>_<cwe>_<commit>_<srcfile>[_<version>]_<funcname>_<OLD|NEW>.<ext>`
// filename.
type FuncFileName struct {
	CVE      string
	CWE      string
	Commit   string
	SrcFile  string
	Version  string // optional; empty when absent
	FuncName string
	Kind     Kind
	Ext      string
	Raw      string
}

// ParseFuncFileName parses the underscore-separated grammar documented in
// the vulnerability corpus layout. A name needs at least 6
// underscore-separated fields before the extension. The function name is
// the single field before OLD/NEW; every field between the srcfile and the
// function name is joined with "_" into the optional version, so a function
// name that itself contains "_" is not recovered whole.
func ParseFuncFileName(name string) (FuncFileName, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	fields := strings.Split(stem, "_")

	if len(fields) < 6 {
		return FuncFileName{}, fmt.Errorf("dataset: %q does not match the cve_cwe_commit_srcfile[_version]_funcname_OLD|NEW grammar", name)
	}

	kindStr := fields[len(fields)-1]
	var kind Kind
	switch kindStr {
	case "OLD":
		kind = KindOld
	case "NEW":
		kind = KindNew
	default:
		return FuncFileName{}, fmt.Errorf("dataset: %q: trailing field %q is neither OLD nor NEW", name, kindStr)
	}

	funcName := fields[len(fields)-2]
	head := fields[:len(fields)-2]

	f := FuncFileName{
		CVE:      head[0],
		CWE:      head[1],
		Commit:   head[2],
		SrcFile:  head[3],
		FuncName: funcName,
		Kind:     kind,
		Ext:      ext,
		Raw:      base,
	}
	if len(head) > 4 {
		f.Version = strings.Join(head[4:], "_")
	}
	return f, nil
}

// NewCounterpartName returns the filename of f's patched counterpart: the
// same name with OLD substituted by NEW. Calling this on a NEW file returns
// itself unchanged in meaning (no OLD token to substitute) and is a caller
// error to rely on.
func (f FuncFileName) NewCounterpartName() string {
	if f.Kind == KindNew {
		return f.Raw
	}
	stem := strings.TrimSuffix(f.Raw, f.Ext)
	fields := strings.Split(stem, "_")
	fields[len(fields)-1] = "NEW"
	return strings.Join(fields, "_") + f.Ext
}
