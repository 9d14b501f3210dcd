// Package model defines the domain types and value objects for the
// freedom-calculator CLI.
//
// This package contains pure data structures with no I/O: trades as read
// from brokerage reports, their rouble-converted counterparts, per-ticker
// summaries, closed-position results, and securities balances. All monetary
// values use shopspring/decimal — broker statements carry exact decimal
// amounts and every derived rouble figure is quantized to 0.01.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
