package simcore

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/attr"
)

type packetEvent struct {
	token   uint64
	dir     simbridge.TraceDir
	device  uint64
	timeSec float64
	bytes   uint32
}

type recordSink struct {
	scheduled []uint64
	packets   []packetEvent
	onFire    func(token uint64)
}

func (s *recordSink) OnScheduled(token uint64) {
	s.scheduled = append(s.scheduled, token)
	if s.onFire != nil {
		s.onFire(token)
	}
}

func (s *recordSink) OnPacket(token uint64, dir simbridge.TraceDir, dev uint64, t float64, bytes uint32) {
	s.packets = append(s.packets, packetEvent{token: token, dir: dir, device: dev, timeSec: t, bytes: bytes})
}

func newTestEngine(t *testing.T) (*Engine, *recordSink) {
	t.Helper()
	sink := &recordSink{}
	e, err := New(sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, sink
}

// buildEchoPair wires two nodes with a p2p link, addressing, routing, an echo
// server on node B and a client on node A, and returns the device refs.
func buildEchoPair(t *testing.T, e *Engine, packets uint32) (devA, devB uint64) {
	t.Helper()

	nodes, err := e.CreateNodes(2)
	if err != nil {
		t.Fatalf("CreateNodes: %v", err)
	}
	if err := e.InstallInternet(nodes); err != nil {
		t.Fatalf("InstallInternet: %v", err)
	}
	devA, devB, err = e.InstallP2P(nodes[0], nodes[1], "5Mbps", "2ms", 1500)
	if err != nil {
		t.Fatalf("InstallP2P: %v", err)
	}
	if err := e.AssignIPv4([]uint64{devA, devB}, "10.1.1.0", "255.255.255.0"); err != nil {
		t.Fatalf("AssignIPv4: %v", err)
	}
	if err := e.PopulateRoutingTables(); err != nil {
		t.Fatalf("PopulateRoutingTables: %v", err)
	}

	server, err := e.InstallUDPEchoServer(nodes[1], 9)
	if err != nil {
		t.Fatalf("InstallUDPEchoServer: %v", err)
	}
	client, err := e.InstallUDPEchoClient(nodes[0], "10.1.1.2", 9, 1024, 1.0, packets)
	if err != nil {
		t.Fatalf("InstallUDPEchoClient: %v", err)
	}
	if err := e.StartApp(server, 0); err != nil {
		t.Fatalf("StartApp(server): %v", err)
	}
	if err := e.StartApp(client, 1.0); err != nil {
		t.Fatalf("StartApp(client): %v", err)
	}
	return devA, devB
}

func TestScheduleFiresOnceAtStopTime(t *testing.T) {
	e, sink := newTestEngine(t)

	if err := e.Schedule(0.5, 77); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := e.StopAt(1.0); err != nil {
		t.Fatalf("StopAt: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.scheduled) != 1 || sink.scheduled[0] != 77 {
		t.Fatalf("expected token 77 exactly once, got %v", sink.scheduled)
	}
	now, err := e.Now()
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if math.Abs(now-1.0) > 1e-9 {
		t.Fatalf("expected now = 1.0, got %g", now)
	}
}

func TestStopHaltsLaterEvents(t *testing.T) {
	e, sink := newTestEngine(t)

	e.Schedule(0.5, 1)
	e.Schedule(2.0, 2) // beyond the stop event
	e.StopAt(1.0)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.scheduled) != 1 || sink.scheduled[0] != 1 {
		t.Fatalf("expected only token 1, got %v", sink.scheduled)
	}
}

func TestEventOrderingAtSameTime(t *testing.T) {
	e, sink := newTestEngine(t)

	e.Schedule(0.25, 1)
	e.Schedule(0.25, 2)
	e.Schedule(0.25, 3)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.scheduled) != 3 {
		t.Fatalf("expected 3 firings, got %v", sink.scheduled)
	}
	for i, tok := range sink.scheduled {
		if tok != uint64(i+1) {
			t.Fatalf("firing order broke insertion order: %v", sink.scheduled)
		}
	}
}

func TestRunGuardRejectsNestedRun(t *testing.T) {
	e, sink := newTestEngine(t)

	other, err := New(&recordSink{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer other.Close()

	var nested error
	sink.onFire = func(uint64) {
		nested = other.Run()
	}
	e.Schedule(0.1, 1)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if nested == nil {
		t.Fatal("expected nested Run on a second engine to be rejected")
	}
}

func TestEchoRoundTrip(t *testing.T) {
	e, sink := newTestEngine(t)
	devA, devB := buildEchoPair(t, e, 2)

	if err := e.SubscribeTrace(devA, 100, true, true); err != nil {
		t.Fatalf("SubscribeTrace devA: %v", err)
	}
	if err := e.SubscribeTrace(devB, 200, true, true); err != nil {
		t.Fatalf("SubscribeTrace devB: %v", err)
	}
	fm, err := e.InstallFlowMonitor()
	if err != nil {
		t.Fatalf("InstallFlowMonitor: %v", err)
	}
	e.StopAt(10.0)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 2 requests + 2 echoes: each device sees 2 tx and 2 rx.
	var aTx, aRx, bTx, bRx int
	for _, p := range sink.packets {
		switch {
		case p.token == 100 && p.dir == simbridge.TraceTx:
			aTx++
		case p.token == 100 && p.dir == simbridge.TraceRx:
			aRx++
		case p.token == 200 && p.dir == simbridge.TraceTx:
			bTx++
		case p.token == 200 && p.dir == simbridge.TraceRx:
			bRx++
		}
	}
	if aTx != 2 || aRx != 2 || bTx != 2 || bRx != 2 {
		t.Fatalf("trace counts a(tx=%d rx=%d) b(tx=%d rx=%d), want 2 each", aTx, aRx, bTx, bRx)
	}

	stats, err := e.CollectFlows(fm)
	if err != nil {
		t.Fatalf("CollectFlows: %v", err)
	}
	if stats.FlowCount != 2 {
		t.Fatalf("expected 2 flows (request+echo), got %d", stats.FlowCount)
	}
	if stats.TxPackets != 4 || stats.RxPackets != 4 {
		t.Fatalf("expected 4 tx / 4 rx packets, got %d / %d", stats.TxPackets, stats.RxPackets)
	}
	wantBytes := uint64(4 * (1024 + ipUDPOverhead))
	if stats.TxBytes != wantBytes || stats.RxBytes != wantBytes {
		t.Fatalf("expected %d bytes each way, got tx=%d rx=%d", wantBytes, stats.TxBytes, stats.RxBytes)
	}
	if stats.DelaySumSec <= 0 {
		t.Fatal("expected positive delay sum")
	}
}

func TestNoRouteWithoutPopulate(t *testing.T) {
	e, sink := newTestEngine(t)

	nodes, _ := e.CreateNodes(2)
	e.InstallInternet(nodes)
	devA, devB, err := e.InstallP2P(nodes[0], nodes[1], "5Mbps", "2ms", 1500)
	if err != nil {
		t.Fatalf("InstallP2P: %v", err)
	}
	e.AssignIPv4([]uint64{devA, devB}, "10.1.1.0", "255.255.255.0")
	// PopulateRoutingTables deliberately omitted.

	server, _ := e.InstallUDPEchoServer(nodes[1], 9)
	client, _ := e.InstallUDPEchoClient(nodes[0], "10.1.1.2", 9, 64, 0.1, 1)
	e.StartApp(server, 0)
	e.StartApp(client, 0.5)
	e.SubscribeTrace(devB, 1, true, true)
	e.StopAt(5.0)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.packets) != 0 {
		t.Fatalf("expected no packet events without routing, got %d", len(sink.packets))
	}
}

func TestMtuDropsOversizedPackets(t *testing.T) {
	e, sink := newTestEngine(t)

	nodes, _ := e.CreateNodes(2)
	e.InstallInternet(nodes)
	devA, devB, _ := e.InstallP2P(nodes[0], nodes[1], "5Mbps", "2ms", 576)
	e.AssignIPv4([]uint64{devA, devB}, "10.1.1.0", "255.255.255.0")
	e.PopulateRoutingTables()

	server, _ := e.InstallUDPEchoServer(nodes[1], 9)
	client, _ := e.InstallUDPEchoClient(nodes[0], "10.1.1.2", 9, 1024, 0.1, 1)
	e.StartApp(server, 0)
	e.StartApp(client, 0.5)
	e.SubscribeTrace(devB, 1, false, true)
	e.StopAt(5.0)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.packets) != 0 {
		t.Fatalf("expected oversized packet to be dropped, got %d rx events", len(sink.packets))
	}
}

func TestCsmaBusDelivery(t *testing.T) {
	e, sink := newTestEngine(t)

	nodes, err := e.CreateNodes(3)
	if err != nil {
		t.Fatalf("CreateNodes: %v", err)
	}
	e.InstallInternet(nodes)
	devs, err := e.InstallCsma(nodes, "100Mbps", "6560ns")
	if err != nil {
		t.Fatalf("InstallCsma: %v", err)
	}
	e.AssignIPv4(devs, "10.1.2.0", "255.255.255.0")
	e.PopulateRoutingTables()

	server, _ := e.InstallUDPEchoServer(nodes[2], 9)
	client, _ := e.InstallUDPEchoClient(nodes[0], "10.1.2.3", 9, 128, 0.5, 1)
	e.StartApp(server, 0)
	e.StartApp(client, 1.0)
	e.SubscribeTrace(devs[2], 9, false, true)
	e.StopAt(5.0)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.packets) != 1 {
		t.Fatalf("expected 1 rx at the server device, got %d", len(sink.packets))
	}
	if sink.packets[0].bytes != 128+ipUDPOverhead {
		t.Fatalf("wrong wire size: %d", sink.packets[0].bytes)
	}
}

func TestServerStopWindow(t *testing.T) {
	e, sink := newTestEngine(t)
	devA, _ := buildEchoPair(t, e, 3)

	// Stop the server before the third request arrives; the client keeps
	// transmitting but gets no echo back.
	var server uint64
	for ref, a := range e.apps {
		if a.kind == appEchoServer {
			server = ref
		}
	}
	if err := e.StopApp(server, 2.5); err != nil {
		t.Fatalf("StopApp: %v", err)
	}
	e.SubscribeTrace(devA, 5, false, true)
	e.StopAt(10.0)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	echoes := 0
	for _, p := range sink.packets {
		if p.token == 5 && p.dir == simbridge.TraceRx {
			echoes++
		}
	}
	if echoes != 2 {
		t.Fatalf("expected 2 echoes before server stop, got %d", echoes)
	}
}

func TestSetAttributeMtu(t *testing.T) {
	e, _ := newTestEngine(t)

	nodes, _ := e.CreateNodes(2)
	devA, _, _ := e.InstallP2P(nodes[0], nodes[1], "5Mbps", "2ms", 1500)

	err := e.SetAttribute("/NodeList/0/DeviceList/0", "Mtu", attr.Uint(9000))
	if err != nil {
		t.Fatalf("SetAttribute: %v", err)
	}
	if e.devices[devA].mtu != 9000 {
		t.Fatalf("mtu not applied: %d", e.devices[devA].mtu)
	}

	if err := e.SetAttribute("/NodeList/0/DeviceList/0", "Mtu", attr.String("big")); err == nil {
		t.Fatal("expected kind mismatch error")
	}
	if err := e.SetAttribute("/NodeList/7/DeviceList/0", "Mtu", attr.Uint(1500)); err == nil {
		t.Fatal("expected error for missing node index")
	}
	if err := e.SetAttribute("/NodeList/0/DeviceList/0", "Banana", attr.Uint(1)); err == nil {
		t.Fatal("expected error for unknown attribute")
	}
}

func TestWifiChannelValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	nodes, _ := e.CreateNodes(3)
	stas := nodes[:2]

	if _, _, err := e.InstallWifi(stas, nodes[2], simbridge.Wifi80211g, "54Mbps", 40); err == nil {
		t.Fatal("expected channel 40 to be rejected for 802.11g")
	}
	if _, _, err := e.InstallWifi(stas, nodes[2], simbridge.Wifi80211ac, "54Mbps", 6); err == nil {
		t.Fatal("expected channel 6 to be rejected for 802.11ac")
	}
	staDevs, apDev, err := e.InstallWifi(stas, nodes[2], simbridge.Wifi80211n5GHz, "54Mbps", 36)
	if err != nil {
		t.Fatalf("InstallWifi: %v", err)
	}
	if len(staDevs) != 2 || apDev == 0 {
		t.Fatalf("unexpected wifi devices: %v, %d", staDevs, apDev)
	}
}

func TestPcapWritesFile(t *testing.T) {
	e, _ := newTestEngine(t)
	devA, _ := buildEchoPair(t, e, 1)

	prefix := filepath.Join(t.TempDir(), "trace")
	if err := e.EnablePcap(devA, prefix); err != nil {
		t.Fatalf("EnablePcap: %v", err)
	}
	e.StopAt(5.0)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	e.Close()

	matches, _ := filepath.Glob(prefix + "-*.pcap")
	if len(matches) != 1 {
		t.Fatalf("expected one pcap file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read pcap: %v", err)
	}
	// global header + 1 tx and 1 rx record with wire-sized bodies
	want := 24 + 2*(16+1024+ipUDPOverhead)
	if len(data) != want {
		t.Fatalf("pcap size = %d, want %d", len(data), want)
	}
}

func TestAddressPoolExhaustion(t *testing.T) {
	e, _ := newTestEngine(t)

	nodes, _ := e.CreateNodes(4)
	devs, err := e.InstallCsma(nodes, "100Mbps", "1us")
	if err != nil {
		t.Fatalf("InstallCsma: %v", err)
	}
	// /30 leaves room for two hosts only.
	if err := e.AssignIPv4(devs, "10.0.0.0", "255.255.255.252"); err == nil {
		t.Fatal("expected address pool exhaustion")
	}
}

func TestClosedEngineRejectsOperations(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Close()

	if _, err := e.CreateNodes(1); err == nil {
		t.Fatal("expected error on closed engine")
	}
	if err := e.Run(); err == nil {
		t.Fatal("expected error running closed engine")
	}
	// Close is idempotent.
	if err := e.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
