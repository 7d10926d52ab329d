package syntaxfilter

import (
	"sort"
	"strings"

	"github.com/clonewatch/clonewatch/internal/tokenfilter"
)

// astNode is one node of the simplified AST this package builds in place
// of a real C++ grammar (see DESIGN.md for why no tree-sitter binding is
// wired here): either a bracket-delimited region (loop/condition/block
// body, call argument list, array subscript...) or a semicolon-terminated
// statement. Both kinds carry a textual form used for the multiset
// Jaccard comparison.
type astNode struct {
	start int
	text  string
}

// ASTNodes returns the ordered multiset of textual node forms for code's
// function body, via a canonical depth-first (pre-order) traversal: the
// spec leaves the depth-first-vs-breadth-first choice open and fixes
// depth-first for determinism.
func ASTNodes(code string) []string {
	tokens := tokenfilter.Tokenize(code)
	nodes := bracketRegions(tokens)
	nodes = append(nodes, statements(tokens)...)

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].start < nodes[j].start })

	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.text
	}
	return out
}

var openers = map[string]string{"(": ")", "{": "}", "[": "]"}

// bracketRegions finds every matched bracket pair and emits a node whose
// text is the delimiters plus everything between them. Because regions
// nest, collecting them in ascending start-index order is already a valid
// pre-order traversal (an outer region's opening delimiter always precedes
// its children's).
func bracketRegions(tokens []string) []astNode {
	type frame struct{ start int }
	var stack []frame
	var nodes []astNode

	for i, tok := range tokens {
		if _, ok := openers[tok]; ok {
			stack = append(stack, frame{start: i})
			continue
		}
		if tok == ")" || tok == "}" || tok == "]" {
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			nodes = append(nodes, astNode{
				start: top.start,
				text:  strings.Join(tokens[top.start:i+1], " "),
			})
		}
	}
	return nodes
}

// statements splits the token stream into semicolon-terminated runs,
// regardless of bracket nesting depth, to capture statement-level
// granularity (the dominant contributor to Jaccard overlap between two
// near-identical functions).
func statements(tokens []string) []astNode {
	var nodes []astNode
	start := 0
	for i, tok := range tokens {
		if tok == ";" {
			if i >= start {
				nodes = append(nodes, astNode{
					start: start,
					text:  strings.Join(tokens[start:i+1], " "),
				})
			}
			start = i + 1
		}
	}
	if start < len(tokens) {
		nodes = append(nodes, astNode{start: start, text: strings.Join(tokens[start:], " ")})
	}
	return nodes
}
