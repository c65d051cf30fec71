// Package boundary is the stable, flat call surface over an engine core.
//
// Every exported operation follows the same discipline: validate all handle
// arguments against the session's table, perform the engine operation with a
// recover at the function's outer edge so no fault unwinds past it, record
// failures in the session's error slot, and return a two-valued Status. Any
// output handles are minted only on success.
//
// The convention deliberately mirrors a C ABI: fixed-width integers, opaque
// handles, explicit element counts on array arguments, and all fallible
// detail pulled out-of-band through LastError immediately after a failing
// call, never through output parameters doubling as error carriers.
package boundary
