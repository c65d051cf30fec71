// Package simbridge defines the contract between the managed side of the
// bridge and a single-threaded discrete-event network-simulation engine.
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	simbridge/           Root package with the Core and EventSink contracts
//	├── sim/             High-level API: sessions, nodes, devices, apps
//	├── boundary/        The flat, status-code call surface over a Core
//	├── resource/        Session-scoped handle table
//	├── callback/        Liveness anchors and callback trampolining
//	├── attr/            Tagged-union attribute values
//	├── simcore/         Built-in discrete-event engine core
//	├── wasmcore/        wazero-backed engine core (native wasm module)
//	├── loader/          Native module discovery and loading
//	└── errors/          Structured error types
//
// # Execution model
//
// An engine Core is strictly single-threaded: all state mutation and callback
// firing happen synchronously on whichever goroutine is inside the blocking
// Run call. Callbacks dispatched during Run execute on that same goroutine
// and should avoid long blocking work, which stalls the simulated clock.
// Only one Core may be inside Run per process at a time, and a session must
// not be shared across goroutines.
//
// Run has no timeout or cancellation primitive. The only way out is the
// simulated clock reaching a stop event scheduled beforehand with StopAt, or
// the event queue draining.
package simbridge
