// Package loader finds and loads the native wasm engine module.
//
// Resolution walks a fixed search order and the first match wins: an
// explicit override (config key engine.path, env SIMBRIDGE_ENGINE_PATH),
// the program's own directory, the per-platform engines/<GOOS>_<GOARCH>/
// subdirectory next to the program, then the platform default locations.
// A failed resolution is fatal at startup and the error lists every path
// that was attempted.
//
// Loading reads the module once, verifies it compiles, and hands out a
// factory that instantiates a fresh runtime per engine so sessions stay
// isolated. Compilation work is shared across instantiations through a
// wazero compilation cache.
package loader
