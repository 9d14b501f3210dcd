// Package export writes the pipeline results to disk: CSV files for the
// trade details, per-ticker summary and closed positions, and a PDF
// report of the closed positions with per-ticker buy/sell tables.
package export
