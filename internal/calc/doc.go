// Package calc implements the financial computations: rouble conversion
// of trades at the settlement-date CBR rate, per-ticker summaries,
// closed-position results, negative-balance coverage from prior-period
// reports, and securities reconciliation.
//
// All functions are pure over their inputs (no I/O); money is decimal
// throughout, with every derived rouble figure quantized to 0.01 using
// half-up rounding, the same convention the tax declaration expects.
package calc
