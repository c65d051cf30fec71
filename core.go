package simbridge

import (
	"github.com/netsimio/simbridge/attr"
)

// TraceDir distinguishes transmit from receive packet trace events.
type TraceDir uint8

const (
	TraceTx TraceDir = iota
	TraceRx
)

func (d TraceDir) String() string {
	if d == TraceTx {
		return "tx"
	}
	return "rx"
}

// WifiStandard selects the PHY standard for a wifi cell.
type WifiStandard int

const (
	Wifi80211a WifiStandard = iota
	Wifi80211b
	Wifi80211g
	Wifi80211n24GHz
	Wifi80211n5GHz
	Wifi80211ac
)

// FlowStats aggregates flow monitor counters across all observed flows.
type FlowStats struct {
	TxPackets    uint64
	RxPackets    uint64
	TxBytes      uint64
	RxBytes      uint64
	DelaySumSec  float64
	JitterSumSec float64
	FlowCount    uint32
}

// EventSink receives engine callbacks. Tokens are the opaque user values
// handed to Schedule and SubscribeTrace; the sink owns their meaning.
// Both methods are invoked synchronously on the goroutine inside Run and
// must not panic into the engine.
type EventSink interface {
	// OnScheduled fires exactly once per Schedule call, at the scheduled time.
	OnScheduled(token uint64)

	// OnPacket fires once per qualifying packet event on a subscribed device.
	OnPacket(token uint64, dir TraceDir, deviceRef uint64, timeSec float64, bytes uint32)
}

// Core is the engine surface the boundary forwards to. References returned
// by Core methods are engine-internal ids; the boundary maps them to opaque
// handles before they reach callers.
//
// Implementations are not safe for concurrent use.
type Core interface {
	// Lifecycle
	SetSeed(seed uint32) error
	Run() error
	StopAt(atSec float64) error
	Now() (float64, error)
	IsRunning() bool
	Schedule(delaySec float64, token uint64) error

	// Topology
	CreateNodes(count uint32) ([]uint64, error)
	InstallInternet(nodes []uint64) error
	InstallP2P(a, b uint64, dataRate, delay string, mtu uint32) (devA, devB uint64, err error)
	InstallCsma(nodes []uint64, dataRate, delay string) ([]uint64, error)
	InstallWifi(stations []uint64, ap uint64, standard WifiStandard, dataRate string, channel int) (staDevs []uint64, apDev uint64, err error)
	SetConstantPosition(node uint64, x, y, z float64) error

	// Addressing & routing
	AssignIPv4(devices []uint64, networkBase, mask string) error
	PopulateRoutingTables() error

	// Applications
	InstallUDPEchoServer(node uint64, port uint16) (uint64, error)
	InstallUDPEchoClient(node uint64, dstIP string, port uint16, packetSize uint32, intervalSec float64, maxPackets uint32) (uint64, error)
	StartApp(app uint64, atSec float64) error
	StopApp(app uint64, atSec float64) error

	// Tracing & statistics
	SubscribeTrace(device uint64, token uint64, wantTx, wantRx bool) error
	EnablePcap(device uint64, filePrefix string) error
	InstallFlowMonitor() (uint64, error)
	CollectFlows(monitor uint64) (FlowStats, error)

	// Configuration
	SetAttribute(path, name string, value attr.Value) error

	// Close releases engine resources. Idempotent.
	Close() error
}

// CoreFactory builds an engine bound to a sink. The boundary passes each new
// session as the sink for the core it creates.
type CoreFactory func(sink EventSink) (Core, error)
