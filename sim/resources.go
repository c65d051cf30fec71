package sim

import (
	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/boundary"
	"github.com/netsimio/simbridge/resource"
)

// Node is a non-owning view of one simulated node.
type Node struct {
	s *Session
	h resource.Handle
}

// Handle exposes the node's raw handle for diagnostics.
func (n *Node) Handle() resource.Handle { return n.h }

// SetConstantPosition pins the node at a static position.
func (n *Node) SetConstantPosition(x, y, z float64) error {
	if err := n.s.check(); err != nil {
		return err
	}
	return n.s.err(boundary.MobilitySetConstantPosition(n.s.b, n.h, x, y, z))
}

// InstallUDPEchoServer installs a UDP echo server on the node.
func (n *Node) InstallUDPEchoServer(port uint16) (*App, error) {
	if err := n.s.check(); err != nil {
		return nil, err
	}
	var h resource.Handle
	if err := n.s.err(boundary.AppUDPEchoServer(n.s.b, n.h, port, &h)); err != nil {
		return nil, err
	}
	return &App{s: n.s, h: h}, nil
}

// InstallUDPEchoClient installs a UDP echo client on the node. The client
// sends maxPackets packets of packetSize bytes every intervalSec seconds
// from its start time.
func (n *Node) InstallUDPEchoClient(dstIP string, port uint16, packetSize uint32, intervalSec float64, maxPackets uint32) (*App, error) {
	if err := n.s.check(); err != nil {
		return nil, err
	}
	var h resource.Handle
	st := boundary.AppUDPEchoClient(n.s.b, n.h, dstIP, port, packetSize, intervalSec, maxPackets, &h)
	if err := n.s.err(st); err != nil {
		return nil, err
	}
	return &App{s: n.s, h: h}, nil
}

// Device is a non-owning view of one network device.
type Device struct {
	s *Session
	h resource.Handle
}

// Handle exposes the device's raw handle for diagnostics.
func (d *Device) Handle() resource.Handle { return d.h }

// SubscribeTrace registers packet event callbacks on the device. At least
// one callback must be non-nil. The subscription lives until the session
// closes; there is no unsubscribe.
func (d *Device) SubscribeTrace(onTx, onRx boundary.PacketFunc) error {
	if err := d.s.check(); err != nil {
		return err
	}
	return d.s.err(boundary.TraceSubscribePacketEvents(d.s.b, d.h, onTx, onRx))
}

// EnablePcap turns on packet capture for the device.
func (d *Device) EnablePcap(filePrefix string) error {
	if err := d.s.check(); err != nil {
		return err
	}
	return d.s.err(boundary.PcapEnable(d.s.b, d.h, filePrefix))
}

// App is a non-owning view of one installed application.
type App struct {
	s *Session
	h resource.Handle
}

// Handle exposes the application's raw handle for diagnostics.
func (a *App) Handle() resource.Handle { return a.h }

// Start sets the application's start time.
func (a *App) Start(atSec float64) error {
	if err := a.s.check(); err != nil {
		return err
	}
	return a.s.err(boundary.AppStart(a.s.b, a.h, atSec))
}

// Stop sets the application's stop time.
func (a *App) Stop(atSec float64) error {
	if err := a.s.check(); err != nil {
		return err
	}
	return a.s.err(boundary.AppStop(a.s.b, a.h, atSec))
}

// FlowMonitor is a non-owning view of one installed flow monitor.
type FlowMonitor struct {
	s *Session
	h resource.Handle
}

// Collect aggregates flow statistics across every monitored flow.
func (m *FlowMonitor) Collect() (simbridge.FlowStats, error) {
	if err := m.s.check(); err != nil {
		return simbridge.FlowStats{}, err
	}
	var stats simbridge.FlowStats
	if err := m.s.err(boundary.FlowmonCollect(m.s.b, m.h, &stats)); err != nil {
		return simbridge.FlowStats{}, err
	}
	return stats, nil
}
