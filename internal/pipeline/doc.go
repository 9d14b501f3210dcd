// Package pipeline runs the full report computation: load the broker
// report and the rate table, convert trades to roubles, cover negative
// balances from prior-period reports, and produce the summaries. The CLI
// process command and the web upload handler both drive this package.
package pipeline
