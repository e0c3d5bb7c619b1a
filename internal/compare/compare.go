// Package compare reports how the canonical records changed between two runs.
package compare

import (
	"cmp"
	"slices"

	"github.com/nao1215/mdscrape/internal/model"
)

// Change is a code whose label differs between the two runs.
type Change struct {
	Code     string `json:"code"`
	OldLabel string `json:"old_label"`
	NewLabel string `json:"new_label"`
}

// Result lists added, removed and relabeled codes, each sorted by code.
type Result struct {
	Added     []model.CanonicalRecord `json:"added"`
	Removed   []model.CanonicalRecord `json:"removed"`
	Relabeled []Change                `json:"relabeled"`
	Unchanged int                     `json:"unchanged"`
}

// Empty reports whether the two runs hold the same records.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Relabeled) == 0
}

// Diff compares old and new by code. Cleaned records carry unique codes; if a
// code repeats anyway, its first occurrence wins.
func Diff(old, new []model.CanonicalRecord) Result {
	before := index(old)
	after := index(new)

	res := Result{
		Added:     []model.CanonicalRecord{},
		Removed:   []model.CanonicalRecord{},
		Relabeled: []Change{},
	}
	for code, n := range after {
		o, ok := before[code]
		switch {
		case !ok:
			res.Added = append(res.Added, n)
		case o.Label != n.Label:
			res.Relabeled = append(res.Relabeled, Change{Code: code, OldLabel: o.Label, NewLabel: n.Label})
		default:
			res.Unchanged++
		}
	}
	for code, o := range before {
		if _, ok := after[code]; !ok {
			res.Removed = append(res.Removed, o)
		}
	}

	byCode := func(a, b model.CanonicalRecord) int { return cmp.Compare(a.Code, b.Code) }
	slices.SortFunc(res.Added, byCode)
	slices.SortFunc(res.Removed, byCode)
	slices.SortFunc(res.Relabeled, func(a, b Change) int { return cmp.Compare(a.Code, b.Code) })
	return res
}

func index(records []model.CanonicalRecord) map[string]model.CanonicalRecord {
	m := make(map[string]model.CanonicalRecord, len(records))
	for _, r := range records {
		if _, ok := m[r.Code]; !ok {
			m[r.Code] = r
		}
	}
	return m
}
