package simcore

import (
	"fmt"
	"net/netip"
)

type appKind uint8

const (
	appEchoServer appKind = iota
	appEchoClient
)

type app struct {
	owner *node
	ref   uint64
	kind  appKind

	startAt float64
	stopAt  float64
	stopSet bool
	started bool

	// server
	port uint16

	// client
	dst      netip.Addr
	dstPort  uint16
	srcPort  uint16
	size     uint32
	interval float64
	max      uint32
	sent     uint32
}

func (a *app) activeAt(t float64) bool {
	if t < a.startAt {
		return false
	}
	if a.stopSet && t > a.stopAt {
		return false
	}
	return true
}

func (e *Engine) app(ref uint64) (*app, error) {
	a, ok := e.apps[ref]
	if !ok {
		return nil, fmt.Errorf("unknown application ref %d", ref)
	}
	return a, nil
}

// InstallUDPEchoServer installs an echo server on a node. Servers are active
// from t=0 unless StartApp moves the window.
func (e *Engine) InstallUDPEchoServer(nodeRef uint64, port uint16) (uint64, error) {
	if e.closed {
		return 0, errClosed
	}
	n, err := e.node(nodeRef)
	if err != nil {
		return 0, err
	}
	if port == 0 {
		return 0, fmt.Errorf("port must be non-zero")
	}
	for _, other := range e.apps {
		if other.kind == appEchoServer && other.owner == n && other.port == port {
			return 0, fmt.Errorf("port %d already in use on node %d", port, nodeRef)
		}
	}
	a := &app{ref: e.ref(), kind: appEchoServer, owner: n, port: port}
	e.apps[a.ref] = a
	return a.ref, nil
}

// InstallUDPEchoClient installs an echo client on a node. The client does
// nothing until StartApp schedules its send loop.
func (e *Engine) InstallUDPEchoClient(nodeRef uint64, dstIP string, port uint16, packetSize uint32, intervalSec float64, maxPackets uint32) (uint64, error) {
	if e.closed {
		return 0, errClosed
	}
	n, err := e.node(nodeRef)
	if err != nil {
		return 0, err
	}
	dst, perr := netip.ParseAddr(dstIP)
	if perr != nil || !dst.Is4() {
		return 0, fmt.Errorf("bad destination address %q", dstIP)
	}
	if port == 0 {
		return 0, fmt.Errorf("port must be non-zero")
	}
	if packetSize == 0 {
		return 0, fmt.Errorf("packet size must be at least 1")
	}
	if intervalSec <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	if maxPackets == 0 {
		return 0, fmt.Errorf("max packets must be at least 1")
	}
	a := &app{
		ref:      e.ref(),
		kind:     appEchoClient,
		owner:    n,
		dst:      dst,
		dstPort:  port,
		size:     packetSize,
		interval: intervalSec,
		max:      maxPackets,
	}
	a.srcPort = uint16(49152 + a.ref%16384)
	e.apps[a.ref] = a
	return a.ref, nil
}

// StartApp sets an application's start time. For clients this schedules the
// send loop; starting a client twice is an error.
func (e *Engine) StartApp(ref uint64, atSec float64) error {
	if e.closed {
		return errClosed
	}
	a, err := e.app(ref)
	if err != nil {
		return err
	}
	if atSec < 0 {
		return fmt.Errorf("start time %g is negative", atSec)
	}
	a.startAt = atSec
	if a.kind != appEchoClient {
		return nil
	}
	if a.started {
		return fmt.Errorf("application %d already started", ref)
	}
	a.started = true
	e.scheduleAt(atSec, func() { e.clientTick(a) })
	return nil
}

// StopApp sets an application's stop time.
func (e *Engine) StopApp(ref uint64, atSec float64) error {
	if e.closed {
		return errClosed
	}
	a, err := e.app(ref)
	if err != nil {
		return err
	}
	a.stopAt = atSec
	a.stopSet = true
	return nil
}

func (e *Engine) clientTick(a *app) {
	if a.stopSet && e.clock >= a.stopAt {
		return
	}
	if a.sent >= a.max {
		return
	}
	e.sendUDP(a.owner, a.srcPort, a.dst, a.dstPort, a.size)
	a.sent++
	if a.sent < a.max {
		e.scheduleAt(e.clock+a.interval, func() { e.clientTick(a) })
	}
}

// deliver hands a packet that reached its destination node to the matching
// server application, which echoes it back to the sender.
func (e *Engine) deliver(n *node, pkt *packet) {
	e.recordRx(pkt)

	for _, a := range e.apps {
		if a.kind != appEchoServer || a.owner != n || a.port != pkt.dstPort {
			continue
		}
		if !a.activeAt(e.clock) {
			return
		}
		if pkt.srcAddr.IsValid() {
			e.sendUDP(n, a.port, pkt.srcAddr, pkt.srcPort, pkt.size)
		}
		return
	}
}
