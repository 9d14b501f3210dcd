// Package web serves the embedded UI: an upload form for the broker
// report, rates workbook and optional prior-period files, result pages
// with the summary and closed positions, CSV/PDF downloads and a JSON
// API. Finished runs are held in an in-memory store keyed by UUID.
package web
