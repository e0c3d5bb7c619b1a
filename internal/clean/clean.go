// Package clean turns the raw scraped record sequence into canonical records.
package clean

import (
	"strings"

	"github.com/nao1215/mdscrape/internal/model"
)

// Summary counts the records each cleaning step removed.
type Summary struct {
	Input        int
	Duplicates   int
	Blank        int
	Placeholders int
	Output       int
}

// Clean deduplicates and filters raw records. The steps run in this order:
//
//  1. keep the first record for each code, including the empty code
//  2. drop records with a blank label
//  3. drop records whose label starts with model.PlaceholderPrefix
//  4. derive Digits from Code
//
// Deduplication happens before filtering, so a blank first occurrence still
// shadows a later, labeled record with the same code. Input order is preserved.
func Clean(raw []model.RawRecord) ([]model.CanonicalRecord, Summary) {
	summary := Summary{Input: len(raw)}

	seen := make(map[string]struct{}, len(raw))
	records := make([]model.CanonicalRecord, 0, len(raw))

	for _, r := range raw {
		if _, dup := seen[r.Code]; dup {
			summary.Duplicates++
			continue
		}
		seen[r.Code] = struct{}{}

		if strings.TrimSpace(r.Label) == "" {
			summary.Blank++
			continue
		}
		if strings.HasPrefix(r.Label, model.PlaceholderPrefix) {
			summary.Placeholders++
			continue
		}

		records = append(records, model.CanonicalRecord{
			Code:   r.Code,
			Label:  r.Label,
			Digits: Digits(r.Code),
		})
	}

	summary.Output = len(records)
	return records, summary
}

// Digits returns code with every character other than an ASCII decimal digit removed.
func Digits(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for i := 0; i < len(code); i++ {
		if c := code[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
