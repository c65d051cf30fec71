// Package callback implements the bridge that converts synchronous engine
// callbacks into managed callback invocations.
//
// Each registration is a liveness anchor: the registry entry is the only
// thing keeping the managed function reachable while the engine may still
// invoke it. Registrations move through a small state machine:
//
//	Armed -> Firing -> Armed    (recurring)
//	Armed -> Firing -> Retired  (one-shot)
//
// A one-shot registration retires itself immediately after its single
// invocation; a recurring one is retired only by its owner's teardown, the
// one code path guaranteed to receive no further invocations. Retiring a
// token while it is firing is rejected.
//
// A panic raised inside a managed callback is recovered at Fire, logged, and
// never propagates into the engine's call stack.
package callback
