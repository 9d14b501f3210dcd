// Package rates loads and serves Central Bank of Russia exchange rates.
//
// Two sources are supported:
//   - the official xlsx export (sheet "RC") that users download from the
//     CBR site, matching the file the original workflow consumed, and
//   - the CBR dynamics XML endpoint, fetched over HTTP behind a circuit
//     breaker and a client-side rate limiter.
//
// Both sources produce a Table: a date-sorted series answering backward
// as-of lookups ("the rate effective on a settlement date"). The CBR
// publishes no rate on weekends and holidays, so the lookup returns the
// latest rate at or before the requested date.
package rates
