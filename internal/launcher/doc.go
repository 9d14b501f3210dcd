// Package launcher implements the up command's guard/setup/exec
// sequence: verify required tools are on PATH, prepare the report
// workspace, then either exec a configured command or hand control to
// the embedded web server.
//
// The optional launch manifest (freedom.jsonc) is JSONC, parsed with
// github.com/tidwall/jsonc so it can carry comments like any other
// launcher configuration people keep in their repos.
package launcher
