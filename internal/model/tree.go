package model

// RootLabel is the label of the sentinel root node.
const RootLabel = "Root"

// TreeNode is one node of the classification hierarchy. Children are keyed by
// a single digit character and owned exclusively by their parent.
//
// A node created only as an intermediate step on a longer code's path keeps an
// empty Code and Label.
type TreeNode struct {
	Code     string               `json:"code"`
	Label    string               `json:"label"`
	Children map[string]*TreeNode `json:"children"`
}

// NewRootNode returns an empty sentinel root.
func NewRootNode() *TreeNode {
	return &TreeNode{Label: RootLabel, Children: make(map[string]*TreeNode)}
}

// NewPlaceholderNode returns a node with no code or label.
func NewPlaceholderNode() *TreeNode {
	return &TreeNode{Children: make(map[string]*TreeNode)}
}

// DisplayLabel returns the text a viewer shows for the node: "<code> - <label>".
func (n *TreeNode) DisplayLabel() string {
	return n.Code + " - " + n.Label
}

// IsPlaceholder reports whether no record ever mapped to this node.
func (n *TreeNode) IsPlaceholder() bool {
	return n.Code == "" && n.Label == ""
}
