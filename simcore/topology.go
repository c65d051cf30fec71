package simcore

import (
	"fmt"
	"net/netip"

	"github.com/netsimio/simbridge"
)

type chanKind uint8

const (
	chanP2P chanKind = iota
	chanCsma
	chanWifi
)

// channel is a shared medium: a point-to-point pair, a CSMA bus, or a wifi
// cell. All devices attached to one channel can reach each other directly.
type channel struct {
	devices  []*device
	rateBps  uint64
	delaySec float64
	kind     chanKind
}

type node struct {
	devices  []*device
	ref      uint64
	pos      [3]float64
	hasPos   bool
	internet bool
}

type device struct {
	owner *node
	ch    *channel
	pcap  *pcapWriter
	subs  []traceSub
	addr  netip.Addr
	ref   uint64
	mtu   uint32
}

func (e *Engine) node(ref uint64) (*node, error) {
	n, ok := e.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("unknown node ref %d", ref)
	}
	return n, nil
}

func (e *Engine) device(ref uint64) (*device, error) {
	d, ok := e.devices[ref]
	if !ok {
		return nil, fmt.Errorf("unknown device ref %d", ref)
	}
	return d, nil
}

func (e *Engine) nodeList(refs []uint64) ([]*node, error) {
	ns := make([]*node, len(refs))
	for i, r := range refs {
		n, err := e.node(r)
		if err != nil {
			return nil, err
		}
		ns[i] = n
	}
	return ns, nil
}

// CreateNodes creates count empty nodes and returns their refs.
func (e *Engine) CreateNodes(count uint32) ([]uint64, error) {
	if e.closed {
		return nil, errClosed
	}
	if count == 0 {
		return nil, fmt.Errorf("node count must be at least 1")
	}
	refs := make([]uint64, count)
	for i := range refs {
		n := &node{ref: e.ref()}
		e.nodes[n.ref] = n
		e.nodeRefs = append(e.nodeRefs, n.ref)
		refs[i] = n.ref
	}
	return refs, nil
}

// InstallInternet marks nodes as carrying the IP stack. Only such nodes can
// source, forward, or sink packets.
func (e *Engine) InstallInternet(nodes []uint64) error {
	if e.closed {
		return errClosed
	}
	ns, err := e.nodeList(nodes)
	if err != nil {
		return err
	}
	for _, n := range ns {
		n.internet = true
	}
	return nil
}

func (e *Engine) newDevice(n *node, ch *channel, mtu uint32) *device {
	d := &device{ref: e.ref(), owner: n, ch: ch, mtu: mtu}
	n.devices = append(n.devices, d)
	ch.devices = append(ch.devices, d)
	e.devices[d.ref] = d
	return d
}

// InstallP2P links two nodes with a point-to-point channel and returns the
// two device refs, one per endpoint.
func (e *Engine) InstallP2P(a, b uint64, dataRate, delay string, mtu uint32) (uint64, uint64, error) {
	if e.closed {
		return 0, 0, errClosed
	}
	na, err := e.node(a)
	if err != nil {
		return 0, 0, err
	}
	nb, err := e.node(b)
	if err != nil {
		return 0, 0, err
	}
	if a == b {
		return 0, 0, fmt.Errorf("cannot link node %d to itself", a)
	}
	rate, err := parseDataRate(dataRate)
	if err != nil {
		return 0, 0, err
	}
	del, err := parseDelay(delay)
	if err != nil {
		return 0, 0, err
	}
	if mtu == 0 {
		return 0, 0, fmt.Errorf("mtu must be at least 1")
	}
	ch := &channel{kind: chanP2P, rateBps: rate, delaySec: del}
	da := e.newDevice(na, ch, mtu)
	db := e.newDevice(nb, ch, mtu)
	e.routingReady = false
	return da.ref, db.ref, nil
}

const csmaMtu = 1500

// InstallCsma attaches every node to one shared bus and returns one device
// ref per node, in input order.
func (e *Engine) InstallCsma(nodes []uint64, dataRate, delay string) ([]uint64, error) {
	if e.closed {
		return nil, errClosed
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("csma bus needs at least one node")
	}
	ns, err := e.nodeList(nodes)
	if err != nil {
		return nil, err
	}
	rate, err := parseDataRate(dataRate)
	if err != nil {
		return nil, err
	}
	del, err := parseDelay(delay)
	if err != nil {
		return nil, err
	}
	ch := &channel{kind: chanCsma, rateBps: rate, delaySec: del}
	refs := make([]uint64, len(ns))
	for i, n := range ns {
		refs[i] = e.newDevice(n, ch, csmaMtu).ref
	}
	e.routingReady = false
	return refs, nil
}

// wifi cells have no configured propagation delay; a fixed one keeps event
// ordering strict.
const wifiPropDelaySec = 1e-6

const wifiMtu = 2304

// InstallWifi builds one cell of station nodes around an access point and
// returns the station device refs plus the AP device ref.
func (e *Engine) InstallWifi(stations []uint64, ap uint64, standard simbridge.WifiStandard, dataRate string, chanNum int) ([]uint64, uint64, error) {
	if e.closed {
		return nil, 0, errClosed
	}
	if len(stations) == 0 {
		return nil, 0, fmt.Errorf("wifi cell needs at least one station")
	}
	stas, err := e.nodeList(stations)
	if err != nil {
		return nil, 0, err
	}
	apNode, err := e.node(ap)
	if err != nil {
		return nil, 0, err
	}
	rate, err := parseDataRate(dataRate)
	if err != nil {
		return nil, 0, err
	}
	if err := validateWifiChannel(standard, chanNum); err != nil {
		return nil, 0, err
	}
	ch := &channel{kind: chanWifi, rateBps: rate, delaySec: wifiPropDelaySec}
	refs := make([]uint64, len(stas))
	for i, n := range stas {
		refs[i] = e.newDevice(n, ch, wifiMtu).ref
	}
	apDev := e.newDevice(apNode, ch, wifiMtu)
	e.routingReady = false
	return refs, apDev.ref, nil
}

func validateWifiChannel(standard simbridge.WifiStandard, chanNum int) error {
	switch standard {
	case simbridge.Wifi80211b, simbridge.Wifi80211g, simbridge.Wifi80211n24GHz:
		if chanNum < 1 || chanNum > 14 {
			return fmt.Errorf("channel %d out of range for 2.4GHz standard", chanNum)
		}
	case simbridge.Wifi80211a, simbridge.Wifi80211n5GHz, simbridge.Wifi80211ac:
		if chanNum < 36 || chanNum > 165 {
			return fmt.Errorf("channel %d out of range for 5GHz standard", chanNum)
		}
	default:
		return fmt.Errorf("unknown wifi standard %d", standard)
	}
	return nil
}

// SetConstantPosition pins a node to a static position in meters.
func (e *Engine) SetConstantPosition(nodeRef uint64, x, y, z float64) error {
	if e.closed {
		return errClosed
	}
	n, err := e.node(nodeRef)
	if err != nil {
		return err
	}
	n.pos = [3]float64{x, y, z}
	n.hasPos = true
	return nil
}
