package tree

import (
	"slices"
	"strings"

	"github.com/nao1215/mdscrape/internal/model"
	"golang.org/x/text/cases"
)

// VisitFunc is called for every node during Walk. path holds the child keys
// from the root to the node; it is empty for the root. Returning false stops
// the descent into the node's children.
type VisitFunc func(path string, node *model.TreeNode) bool

// Walk visits root and its descendants depth-first, pre-order, with children
// in ascending key order.
func Walk(root *model.TreeNode, fn VisitFunc) {
	if root == nil {
		return
	}
	walk("", root, fn)
}

func walk(path string, node *model.TreeNode, fn VisitFunc) {
	if !fn(path, node) {
		return
	}
	for _, key := range SortedKeys(node) {
		walk(path+key, node.Children[key], fn)
	}
}

// SortedKeys returns the child keys of node in ascending order.
func SortedKeys(node *model.TreeNode) []string {
	keys := make([]string, 0, len(node.Children))
	for k := range node.Children {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Match is one search hit.
type Match struct {
	// Path is the digit path from the root to the node.
	Path string `json:"path"`

	// Depth is the number of edges between the root and the node.
	Depth int `json:"depth"`

	Node *model.TreeNode `json:"-"`
}

// Text returns the display label of the matched node.
func (m Match) Text() string {
	return m.Node.DisplayLabel()
}

// Search returns every non-placeholder node below the root whose display
// label contains query, compared case-insensitively. Matches are returned in
// Walk order. An empty query matches nothing.
func Search(root *model.TreeNode, query string) []Match {
	if query == "" {
		return nil
	}

	fold := cases.Fold()
	needle := fold.String(query)

	var matches []Match
	Walk(root, func(path string, node *model.TreeNode) bool {
		if path == "" || node.IsPlaceholder() {
			return true
		}
		if strings.Contains(fold.String(node.DisplayLabel()), needle) {
			matches = append(matches, Match{Path: path, Depth: len(path), Node: node})
		}
		return true
	})
	return matches
}

// Find returns the node at the given digit path, or nil when there is none.
// The empty path returns root.
func Find(root *model.TreeNode, digits string) *model.TreeNode {
	node := root
	for i := 0; i < len(digits) && node != nil; i++ {
		node = node.Children[digits[i:i+1]]
	}
	return node
}

// Count returns the number of nodes below root.
func Count(root *model.TreeNode) int {
	n := 0
	Walk(root, func(path string, _ *model.TreeNode) bool {
		if path != "" {
			n++
		}
		return true
	})
	return n
}

// Depth returns the length of the longest path below root.
func Depth(root *model.TreeNode) int {
	deepest := 0
	Walk(root, func(path string, _ *model.TreeNode) bool {
		deepest = max(deepest, len(path))
		return true
	})
	return deepest
}

// Equal reports whether a and b have the same shape and the same code and
// label at every node. A nil child map equals an empty one.
func Equal(a, b *model.TreeNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Code != b.Code || a.Label != b.Label || len(a.Children) != len(b.Children) {
		return false
	}
	for k, ca := range a.Children {
		cb, ok := b.Children[k]
		if !ok || !Equal(ca, cb) {
			return false
		}
	}
	return true
}
