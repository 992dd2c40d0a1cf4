// Package contract holds the assertion helpers guarding the runtime's
// preconditions. Violations are programmer errors and panic; there is
// nothing to recover from.
package contract

import "sync/atomic"

var audit atomic.Bool

// SetAudit toggles the expensive audit checks (duplicate-add detection,
// allocator address validation). Cheap checks always run.
func SetAudit(on bool) {
	audit.Store(on)
}

// Auditing reports whether audit checks are enabled.
func Auditing() bool {
	return audit.Load()
}

// Pre panics when a callers precondition does not hold.
func Pre(cond bool, msg string) {
	if !cond {
		panic("ecs: precondition violated: " + msg)
	}
}

// Assert panics when an internal invariant does not hold.
func Assert(cond bool, msg string) {
	if !cond {
		panic("ecs: assertion failed: " + msg)
	}
}

// Post panics when a function failed to establish its postcondition.
func Post(cond bool, msg string) {
	if !cond {
		panic("ecs: postcondition violated: " + msg)
	}
}

// PreAudit evaluates cond only when auditing is enabled.
func PreAudit(cond func() bool, msg string) {
	if audit.Load() && !cond() {
		panic("ecs: precondition violated: " + msg)
	}
}
