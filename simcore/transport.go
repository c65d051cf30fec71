package simcore

import (
	"net/netip"
)

// ipUDPOverhead is the IPv4 + UDP header bytes added to every payload on the
// wire. Trace events, flow counters, MTU checks and pcap records all see
// wire sizes.
const ipUDPOverhead = 28

// contentionJitterSec bounds the random access jitter added on shared media
// (CSMA, wifi). Point-to-point links have none.
const contentionJitterSec = 1e-6

type packet struct {
	srcAddr netip.Addr
	dstAddr netip.Addr
	flow    flowKey
	sentAt  float64
	size    uint32
	srcPort uint16
	dstPort uint16
}

// sendUDP routes a payload from src to dst and starts the hop-by-hop
// transmission. Packets with no route are dropped before any device sees
// them.
func (e *Engine) sendUDP(src *node, srcPort uint16, dst netip.Addr, dstPort uint16, payload uint32) {
	route := e.findRoute(src, dst)
	if len(route) == 0 {
		return
	}

	pkt := &packet{
		srcAddr: route[0].egress.addr,
		dstAddr: dst,
		srcPort: srcPort,
		dstPort: dstPort,
		size:    payload,
		sentAt:  e.clock,
		flow:    flowKey{src: src.ref, dst: dst, dstPort: dstPort},
	}
	e.recordTx(pkt)
	e.transmit(route, 0, pkt)
}

// transmit pushes the packet across hop idx. Arrival at the hop's ingress
// device is a scheduled event; the last hop delivers to the owning node.
func (e *Engine) transmit(route []hop, idx int, pkt *packet) {
	h := route[idx]
	wire := pkt.size + ipUDPOverhead
	if wire > h.egress.mtu {
		// no fragmentation: oversized packets die at the egress device
		return
	}

	ch := h.egress.ch
	txTime := float64(wire) * 8 / float64(ch.rateBps)
	arrival := e.clock + txTime + ch.delaySec
	if ch.kind != chanP2P {
		arrival += e.rng.Float64() * contentionJitterSec
	}

	e.deviceEvent(h.egress, true, wire)
	e.scheduleAt(arrival, func() {
		e.deviceEvent(h.ingress, false, wire)
		if idx+1 < len(route) {
			e.transmit(route, idx+1, pkt)
		} else {
			e.deliver(h.ingress.owner, pkt)
		}
	})
}
