// Package sim provides Go-native wrappers over the flat boundary surface.
//
// A Session owns one engine context and is the only owning wrapper: its
// Close tears down the engine, every callback anchor, and every handle in
// bulk. Node, Device, App, and FlowMonitor are non-owning views; they add
// type safety and lifetime tracking on top of raw handles, but the session
// frees the underlying objects, not them. This asymmetry is deliberate:
// the engine has no per-resource teardown, so a per-wrapper Close would
// promise a release that cannot happen.
//
// After a session closes, any operation through one of its wrappers fails
// locally without reaching the boundary. Close is idempotent and safe to
// call from a finalizer; the runtime finalizer is registered as a backstop
// for sessions dropped without an explicit Close, and release failures on
// that path are swallowed.
package sim
