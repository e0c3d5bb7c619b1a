// Package keyspace enumerates the classification codes to scrape.
//
// A code has the fixed shape DDD.D: three zero-padded integer digits, a dot
// and one fractional digit. The full keyspace is 000.0 through 999.9.
package keyspace

import (
	"errors"
	"fmt"
	"slices"
)

// Size is the number of codes in the full keyspace.
const Size = 10000

// ErrInvalidCode is returned when a code does not have the DDD.D shape.
var ErrInvalidCode = errors.New("invalid code: expected DDD.D")

// ErrInvalidRange is returned when the start of a range is after its end.
var ErrInvalidRange = errors.New("invalid range: start is after end")

// Enumerate returns every code from 000.0 to 999.9 in ascending order.
func Enumerate() []string {
	codes := make([]string, 0, Size)
	for i := 0; i < Size; i++ {
		codes = append(codes, format(i))
	}
	return codes
}

// Range returns the slice of Enumerate from `from` to `to`, both inclusive.
func Range(from, to string) ([]string, error) {
	start, err := index(from)
	if err != nil {
		return nil, fmt.Errorf("range start %q: %w", from, err)
	}
	end, err := index(to)
	if err != nil {
		return nil, fmt.Errorf("range end %q: %w", to, err)
	}
	if start > end {
		return nil, fmt.Errorf("%s > %s: %w", from, to, ErrInvalidRange)
	}

	return slices.Clip(Enumerate()[start : end+1]), nil
}

// Valid reports whether code has the DDD.D shape.
func Valid(code string) bool {
	_, err := index(code)
	return err == nil
}

// format renders the i-th code of the keyspace.
func format(i int) string {
	return fmt.Sprintf("%03d.%d", i/10, i%10)
}

// index is the inverse of format.
func index(code string) (int, error) {
	if len(code) != 5 || code[3] != '.' {
		return 0, ErrInvalidCode
	}
	n := 0
	for i := 0; i < len(code); i++ {
		if i == 3 {
			continue
		}
		c := code[i]
		if c < '0' || c > '9' {
			return 0, ErrInvalidCode
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
