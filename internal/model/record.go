package model

// RawRecord is one code/label pair read from a single table cell.
// Either field may be empty; cleaning decides what survives.
type RawRecord struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// CanonicalRecord is a RawRecord that passed cleaning.
//
// Code is unique within a cleaned set, Label is non-empty and does not start
// with PlaceholderPrefix, and Digits holds only the decimal digits of Code
// ("123.4" becomes "1234").
type CanonicalRecord struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Digits string `json:"digits"`
}

// PlaceholderPrefix marks structural rows in the source table that are not
// real classification entries.
const PlaceholderPrefix = "--"
