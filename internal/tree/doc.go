// Package tree folds canonical records into a hierarchy keyed by the digits
// of each code, and provides the read-side helpers a viewer needs: ordered
// traversal, lookup, display labels and substring search.
//
// A record with digits "5123" lives at root -> 5 -> 1 -> 2 -> 3. Nodes on the
// way that no record maps to stay as placeholders with an empty code and label.
//
// The serialized form is a single-key JSON object whose key is the root key
// (usually "root") and whose value is the root node:
//
//	{"root": {"code": "", "label": "Root", "children": {"5": {...}}}}
package tree
