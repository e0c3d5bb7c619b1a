package tree

import "github.com/nao1215/mdscrape/internal/model"

// Build constructs the hierarchy from records in input order.
//
// Each record's Digits are walked from the root, creating placeholder nodes as
// needed; the node reached after the last digit takes the record's Code and
// Label. When two records map to the same digit path, the later one wins.
// Records with no digits are skipped so the root sentinel is never overwritten.
func Build(records []model.CanonicalRecord) *model.TreeNode {
	root := model.NewRootNode()

	for _, r := range records {
		if r.Digits == "" {
			continue
		}

		node := root
		for i := 0; i < len(r.Digits); i++ {
			key := r.Digits[i : i+1]
			child, ok := node.Children[key]
			if !ok {
				child = model.NewPlaceholderNode()
				node.Children[key] = child
			}
			node = child
		}

		node.Code = r.Code
		node.Label = r.Label
	}

	return root
}
