package sim

import (
	"math"
	"testing"

	stderrors "errors"

	"github.com/netsimio/simbridge/errors"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEchoScenario(t *testing.T) {
	s := newSession(t)

	nodes, err := s.CreateNodes(2)
	if err != nil {
		t.Fatalf("CreateNodes: %v", err)
	}
	if err := s.InstallInternet(nodes...); err != nil {
		t.Fatalf("InstallInternet: %v", err)
	}
	devA, devB, err := s.InstallP2P(nodes[0], nodes[1], "5Mbps", "2ms", 1500)
	if err != nil {
		t.Fatalf("InstallP2P: %v", err)
	}
	if err := s.AssignIPv4([]*Device{devA, devB}, "10.1.1.0", "255.255.255.0"); err != nil {
		t.Fatalf("AssignIPv4: %v", err)
	}
	if err := s.PopulateRoutingTables(); err != nil {
		t.Fatalf("PopulateRoutingTables: %v", err)
	}

	server, err := nodes[1].InstallUDPEchoServer(9)
	if err != nil {
		t.Fatalf("InstallUDPEchoServer: %v", err)
	}
	client, err := nodes[0].InstallUDPEchoClient("10.1.1.2", 9, 512, 1.0, 2)
	if err != nil {
		t.Fatalf("InstallUDPEchoClient: %v", err)
	}
	_ = server

	mon, err := s.InstallFlowMonitor()
	if err != nil {
		t.Fatalf("InstallFlowMonitor: %v", err)
	}

	var events int
	if err := devA.SubscribeTrace(
		func(dev uint64, timeSec float64, bytes uint32) { events++ },
		func(dev uint64, timeSec float64, bytes uint32) { events++ },
	); err != nil {
		t.Fatalf("SubscribeTrace: %v", err)
	}

	if err := client.Start(1.0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(10.0); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 2 requests out, 2 echoes back on the client device.
	if events != 4 {
		t.Fatalf("expected 4 trace events, got %d", events)
	}

	stats, err := mon.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.FlowCount != 2 || stats.TxPackets != 4 || stats.RxPackets != 4 {
		t.Fatalf("unexpected flow stats: %+v", stats)
	}

	now, err := s.Now()
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if math.Abs(now-10.0) > 1e-9 {
		t.Fatalf("expected now=10.0, got %v", now)
	}
}

func TestScheduleAndNow(t *testing.T) {
	s := newSession(t)

	var at float64 = -1
	if err := s.Schedule(0.25, func() {
		now, err := s.Now()
		if err == nil {
			at = now
		}
	}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := s.Stop(1.0); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if math.Abs(at-0.25) > 1e-9 {
		t.Fatalf("callback saw wrong time: %v", at)
	}
}

func TestCloseIdempotent(t *testing.T) {
	s := newSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWrapperFaultsLocallyAfterClose(t *testing.T) {
	s := newSession(t)

	nodes, err := s.CreateNodes(1)
	if err != nil {
		t.Fatalf("CreateNodes: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err = nodes[0].SetConstantPosition(0, 0, 0)
	if err == nil {
		t.Fatal("expected error through closed session")
	}
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindClosed}) {
		t.Fatalf("expected closed-kind error, got %v", err)
	}

	if _, err := s.CreateNodes(1); err == nil {
		t.Fatal("expected error creating nodes on closed session")
	}
	if _, err := s.Now(); err == nil {
		t.Fatal("expected error reading time on closed session")
	}
}

func TestStructuredErrorsPassThrough(t *testing.T) {
	s := newSession(t)

	// Empty destination address is a validation fault at the boundary.
	nodes, err := s.CreateNodes(1)
	if err != nil {
		t.Fatalf("CreateNodes: %v", err)
	}
	_, err = nodes[0].InstallUDPEchoClient("", 9, 512, 1.0, 1)
	if err == nil {
		t.Fatal("expected error for empty destination")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseValidate}) {
		t.Fatalf("expected validation-phase error, got %v", err)
	}
}
