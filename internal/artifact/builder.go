// Package artifact computes the per-vulnerability derived fields Stage 2
// and Stage 3 consume (§3 "Derived lazily and memoised in the side-store"),
// memoising the two that the side-store's namespaces actually cover
// (del/add line hashes, line-hash multisets) and recomputing the rest —
// tokens, AST nodes — on every build, since the side-store's five
// namespaces have no slot for them and both are cheap relative to a
// round-trip.
package artifact

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/clonewatch/clonewatch/internal/logger"
	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/sidestore"
	"github.com/clonewatch/clonewatch/internal/syntaxfilter"
	"github.com/clonewatch/clonewatch/internal/tokenfilter"
)

// Builder computes syntaxfilter.VulnArtifacts and the Stage 2 token index
// entry for each vulnerability, under the side-store's single-writer
// discipline (§6): BuildAll writes each vuln_id's entries from the calling
// goroutine only.
type Builder struct {
	store         sidestore.Store
	filterStrings []string
}

// NewBuilder constructs a Builder backed by store.
func NewBuilder(store sidestore.Store) *Builder {
	return &Builder{store: store, filterStrings: syntaxfilter.DefaultFilterStrings}
}

// Built bundles the two derived views of a vulnerability that downstream
// stage construction needs.
type Built struct {
	Artifacts syntaxfilter.VulnArtifacts
	Tokens    []string // vuln_tokens, for the Stage 2 index
}

type lineHashCache struct {
	Del []string `json:"del"`
	Add []string `json:"add"`
}

type multisetCache struct {
	Vuln  map[string]int `json:"vuln"`
	Patch map[string]int `json:"patch"`
}

// BuildAll computes (or reads from cache) the artefacts for every
// vulnerability. A vulnerability whose artefacts cannot be computed or
// cached is dropped and its error logged at WARN, per §7 kind 3.
func (b *Builder) BuildAll(ctx context.Context, vulns []model.Vulnerability) map[string]Built {
	out := make(map[string]Built, len(vulns))
	for _, v := range vulns {
		built, err := b.buildOne(ctx, v)
		if err != nil {
			logger.Warn("artifact: dropping %s: %v", v.VulnID, err)
			continue
		}
		out[v.VulnID] = built
	}
	return out
}

func (b *Builder) buildOne(ctx context.Context, v model.Vulnerability) (Built, error) {
	lh, err := b.lineHashes(ctx, v)
	if err != nil {
		return Built{}, err
	}
	ms, err := b.multisets(ctx, v)
	if err != nil {
		return Built{}, err
	}

	art := syntaxfilter.VulnArtifacts{
		VulnID:            v.VulnID,
		CVEID:             v.CVEID,
		DelLineHashes:     lh.Del,
		AddLineHashes:     lh.Add,
		VulnLineHashMset:  ms.Vuln,
		PatchLineHashMset: ms.Patch,
		VulnASTNodes:      syntaxfilter.ASTNodes(v.VulnCode),
		PatchASTNodes:     syntaxfilter.ASTNodes(v.PatchCode),
	}
	return Built{Artifacts: art, Tokens: tokenfilter.Tokenize(v.VulnCode)}, nil
}

func (b *Builder) lineHashes(ctx context.Context, v model.Vulnerability) (lineHashCache, error) {
	if cached, ok, err := b.readCache(ctx, sidestore.NamespacePatchLineHashes, v.VulnID); err != nil {
		return lineHashCache{}, err
	} else if ok {
		var lh lineHashCache
		if err := json.Unmarshal(cached, &lh); err == nil {
			return lh, nil
		}
	}

	del, add := syntaxfilter.DiffLineHashes(v.VulnCode, v.PatchCode, b.filterStrings)
	lh := lineHashCache{Del: del, Add: add}
	if err := b.writeCache(ctx, sidestore.NamespacePatchLineHashes, v.VulnID, lh); err != nil {
		return lineHashCache{}, err
	}
	return lh, nil
}

func (b *Builder) multisets(ctx context.Context, v model.Vulnerability) (multisetCache, error) {
	if cached, ok, err := b.readCache(ctx, sidestore.NamespaceLineHashMset, v.VulnID); err != nil {
		return multisetCache{}, err
	} else if ok {
		var ms multisetCache
		if err := json.Unmarshal(cached, &ms); err == nil {
			return ms, nil
		}
	}

	ms := multisetCache{
		Vuln:  syntaxfilter.LineHashMultiset(v.VulnCode, b.filterStrings),
		Patch: syntaxfilter.LineHashMultiset(v.PatchCode, b.filterStrings),
	}
	if err := b.writeCache(ctx, sidestore.NamespaceLineHashMset, v.VulnID, ms); err != nil {
		return multisetCache{}, err
	}
	return ms, nil
}

func (b *Builder) readCache(ctx context.Context, ns sidestore.Namespace, key string) ([]byte, bool, error) {
	data, ok, err := b.store.Get(ctx, ns, key)
	if err != nil {
		return nil, false, fmt.Errorf("artifact: reading %s/%s: %w", ns, key, err)
	}
	return data, ok, nil
}

func (b *Builder) writeCache(ctx context.Context, ns sidestore.Namespace, key string, v interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("artifact: encoding %s/%s: %w", ns, key, err)
	}
	if err := b.store.Set(ctx, ns, key, buf.Bytes()); err != nil {
		return fmt.Errorf("artifact: writing %s/%s: %w", ns, key, err)
	}
	return nil
}
