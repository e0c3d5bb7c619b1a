// Package report writes the artifacts of a finished run.
//
// Each writer renders one format from a *model.Run:
//   - CSVWriter: canonical records with code, label and digits columns
//   - TreeJSONWriter: the classification tree under its root key
//   - XLSXWriter: the same records as a spreadsheet
//   - MarkdownWriter: a human-readable run summary
//
// The serialized tree is the handoff to viewers; ReadTree loads it back.
// Artifacts ties the writers to an output directory and acts as a
// pipeline persister.
package report
