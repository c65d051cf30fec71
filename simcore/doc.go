// Package simcore is the built-in single-threaded discrete-event
// network-simulation engine.
//
// The kernel is an event heap ordered by (time, insertion sequence); Run
// drains it on the calling goroutine until a stop event fires or the queue
// empties. On top of the kernel sit a small topology model (point-to-point
// links, CSMA buses, wifi cells), IPv4 addressing with global routing, UDP
// echo applications, per-device packet traces, pcap capture, and a flow
// monitor.
//
// The engine implements simbridge.Core. It is not safe for concurrent use,
// and only one engine may be inside Run per process at a time.
package simcore
