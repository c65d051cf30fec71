// Package errors provides structured error types for the simbridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Usage faults (invalid handles, nil arguments, empty arrays) are
// raised in PhaseValidate before the engine is touched; engine rejections are
// PhaseEngine; module resolution failures are PhaseResolve and fatal at
// startup.
//
// Use the convenience constructors for common patterns:
//
//	err := errors.InvalidHandle("node", 999)
//	err := errors.NilArgument("outNodes")
//	err := errors.EngineFault("p2p_install", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
