// Package debugcheck provides opt-in assertions for the misuse categories
// §7 of the specification calls out as undefined behavior rather than
// recoverable errors (mismatched name/root/type, uneven input length).
// Grounded on the teacher's own willingness to panic on a broken invariant
// (core/transport.go, protocol.go's "panic(\"timeout gathering\")") rather
// than return a wrapped error for a condition the protocol itself treats as
// a programmer bug. Assertions here are no-ops unless a collective was
// constructed with collective.WithStrict(), preserving "implementations may
// assert in debug builds" without imposing the cost by default.
package debugcheck

import "fmt"

// Assert panics with msg (formatted with args) if enabled is true and cond
// is false. It is meant to be called as:
//
//	debugcheck.Assert(cfg.Strict, len(in) == want, "scatter: root input length %d, want %d", len(in), want)
func Assert(enabled, cond bool, format string, args ...interface{}) {
	if enabled && !cond {
		panic(fmt.Sprintf("collective: assertion failed: "+format, args...))
	}
}
