// Package ingest reads brokerage reports into model.Trade records.
//
// Two report formats are supported, selected by file extension:
//   - xlsx workbooks with a "Trades" sheet (and optionally a "Securities"
//     sheet carrying end-of-period balances), and
//   - text-layer PDF statements, where trades are parsed out of section
//     "5. Информация о совершенных сделках".
//
// Loaders normalize as they read: operation wording is canonicalized,
// quantities are made absolute, column headers are trimmed, and missing
// columns fall back to documented defaults with a logged warning.
package ingest
