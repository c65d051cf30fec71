// Package wasmcore adapts a wasm-compiled engine to the simbridge.Core
// interface using wazero.
//
// The guest module exports one function per engine operation plus an
// alloc/free pair for passing strings and arrays through linear memory.
// Callbacks travel the other way through a host module named "simbridge"
// whose trampolines forward to the session's event sink; a panic inside a
// managed callback is recovered at the trampoline so it never unwinds into
// guest code.
//
// Each core owns its wazero runtime: the engine is single-threaded and
// single-session, so sharing an instantiated guest between cores would
// break both isolation and the one-running-engine rule.
package wasmcore
