package simcore

import (
	"container/heap"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/attr"
)

// runGuard enforces the one-engine-running-per-process constraint. The
// engine's clock and event dispatch are process-visible side effects (pcap
// files, callbacks), so overlapping Run calls are rejected rather than
// interleaved.
var runGuard atomic.Bool

// Engine is the built-in discrete-event core. It implements simbridge.Core.
type Engine struct {
	sink simbridge.EventSink
	rng  *rand.Rand

	queue   eventQueue
	clock   float64
	seq     uint64
	running bool
	stopped bool
	closed  bool

	nextRef  uint64
	nodes    map[uint64]*node
	nodeRefs []uint64 // creation order, for attribute paths
	devices  map[uint64]*device
	apps     map[uint64]*app
	monitors map[uint64]*flowMonitor

	flows map[flowKey]*flowRecord
	attrs map[string]attr.Value

	routingReady bool
	pcaps        []*pcapWriter
}

// New creates an engine bound to sink. The sink receives every scheduled and
// packet-trace callback, synchronously, on the goroutine inside Run.
func New(sink simbridge.EventSink) (*Engine, error) {
	if sink == nil {
		return nil, fmt.Errorf("nil event sink")
	}
	return &Engine{
		sink:     sink,
		rng:      rand.New(rand.NewSource(1)),
		nodes:    make(map[uint64]*node),
		devices:  make(map[uint64]*device),
		apps:     make(map[uint64]*app),
		monitors: make(map[uint64]*flowMonitor),
		flows:    make(map[flowKey]*flowRecord),
		attrs:    make(map[string]attr.Value),
	}, nil
}

// Factory adapts New to the simbridge.CoreFactory signature.
func Factory(sink simbridge.EventSink) (simbridge.Core, error) {
	return New(sink)
}

func (e *Engine) ref() uint64 {
	e.nextRef++
	return e.nextRef
}

// SetSeed seeds the engine's random stream (contention jitter on shared
// media).
func (e *Engine) SetSeed(seed uint32) error {
	if e.closed {
		return errClosed
	}
	e.rng = rand.New(rand.NewSource(int64(seed)))
	return nil
}

// Run drains the event queue on the calling goroutine until a stop event
// fires or no events remain. Only one engine per process may be inside Run
// at a time.
func (e *Engine) Run() error {
	if e.closed {
		return errClosed
	}
	if !runGuard.CompareAndSwap(false, true) {
		return fmt.Errorf("another engine is already running in this process")
	}
	defer runGuard.Store(false)

	e.running = true
	e.stopped = false
	defer func() { e.running = false }()

	for e.queue.Len() > 0 && !e.stopped {
		ev := heap.Pop(&e.queue).(*event)
		e.clock = ev.at
		ev.fire()
	}
	return nil
}

// StopAt schedules a stop event at absolute time atSec. When it fires, Run
// returns with the clock at exactly atSec and later events still queued.
func (e *Engine) StopAt(atSec float64) error {
	if e.closed {
		return errClosed
	}
	if atSec < e.clock {
		return fmt.Errorf("stop time %g is in the past (now %g)", atSec, e.clock)
	}
	e.scheduleAt(atSec, func() { e.stopped = true })
	return nil
}

// Now returns the current simulated time in seconds.
func (e *Engine) Now() (float64, error) {
	if e.closed {
		return 0, errClosed
	}
	return e.clock, nil
}

// IsRunning reports whether the calling stack is inside Run.
func (e *Engine) IsRunning() bool {
	return e.running
}

// Schedule arranges for the sink's OnScheduled to fire exactly once with
// token, delaySec seconds from now.
func (e *Engine) Schedule(delaySec float64, token uint64) error {
	if e.closed {
		return errClosed
	}
	if delaySec < 0 {
		return fmt.Errorf("negative delay %g", delaySec)
	}
	e.scheduleAt(e.clock+delaySec, func() {
		e.sink.OnScheduled(token)
	})
	return nil
}

// Close releases engine resources. Idempotent; pending events are discarded.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	for _, p := range e.pcaps {
		p.close()
	}
	e.pcaps = nil
	e.queue = nil
	e.nodes = nil
	e.devices = nil
	e.apps = nil
	e.monitors = nil
	e.flows = nil
	return nil
}

var errClosed = fmt.Errorf("engine is closed")
