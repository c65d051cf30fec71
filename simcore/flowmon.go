package simcore

import (
	"fmt"
	"math"
	"net/netip"

	"github.com/netsimio/simbridge"
)

type flowKey struct {
	dst     netip.Addr
	src     uint64
	dstPort uint16
}

type flowRecord struct {
	txPackets uint64
	rxPackets uint64
	txBytes   uint64
	rxBytes   uint64
	delaySum  float64
	jitterSum float64
	lastDelay float64
	hasLast   bool
}

// flowMonitor is a view over the engine's flow records. All monitors share
// the same records; flows are counted from the first InstallFlowMonitor on.
type flowMonitor struct {
	ref uint64
}

// InstallFlowMonitor starts flow accounting on all nodes and returns the
// monitor's ref.
func (e *Engine) InstallFlowMonitor() (uint64, error) {
	if e.closed {
		return 0, errClosed
	}
	m := &flowMonitor{ref: e.ref()}
	e.monitors[m.ref] = m
	return m.ref, nil
}

// CollectFlows aggregates every observed flow into one stats record.
func (e *Engine) CollectFlows(monitor uint64) (simbridge.FlowStats, error) {
	if e.closed {
		return simbridge.FlowStats{}, errClosed
	}
	if _, ok := e.monitors[monitor]; !ok {
		return simbridge.FlowStats{}, fmt.Errorf("unknown flow monitor ref %d", monitor)
	}

	var out simbridge.FlowStats
	for _, rec := range e.flows {
		out.TxPackets += rec.txPackets
		out.RxPackets += rec.rxPackets
		out.TxBytes += rec.txBytes
		out.RxBytes += rec.rxBytes
		out.DelaySumSec += rec.delaySum
		out.JitterSumSec += rec.jitterSum
		out.FlowCount++
	}
	return out, nil
}

func (e *Engine) monitoring() bool {
	return len(e.monitors) > 0
}

func (e *Engine) flowRecord(key flowKey) *flowRecord {
	rec, ok := e.flows[key]
	if !ok {
		rec = &flowRecord{}
		e.flows[key] = rec
	}
	return rec
}

func (e *Engine) recordTx(pkt *packet) {
	if !e.monitoring() {
		return
	}
	rec := e.flowRecord(pkt.flow)
	rec.txPackets++
	rec.txBytes += uint64(pkt.size + ipUDPOverhead)
}

func (e *Engine) recordRx(pkt *packet) {
	if !e.monitoring() {
		return
	}
	rec := e.flowRecord(pkt.flow)
	rec.rxPackets++
	rec.rxBytes += uint64(pkt.size + ipUDPOverhead)

	delay := e.clock - pkt.sentAt
	rec.delaySum += delay
	if rec.hasLast {
		rec.jitterSum += math.Abs(delay - rec.lastDelay)
	}
	rec.lastDelay = delay
	rec.hasLast = true
}
