package boundary

import (
	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/attr"
	"github.com/netsimio/simbridge/errors"
	"github.com/netsimio/simbridge/resource"
)

// SessionSetSeed seeds the engine's random stream.
func SessionSetSeed(s *Session, seed uint32) Status {
	return guard(s, "sim_set_seed", func() error {
		return engineErr("sim_set_seed", s.core.SetSeed(seed))
	})
}

// SessionRun blocks until the engine's clock reaches a scheduled stop event
// or the event queue drains. Callbacks fire synchronously on the calling
// goroutine.
func SessionRun(s *Session) Status {
	return guard(s, "sim_run", func() error {
		return engineErr("sim_run", s.core.Run())
	})
}

// SessionStop schedules a stop event at absolute time atSec.
func SessionStop(s *Session, atSec float64) Status {
	return guard(s, "sim_stop", func() error {
		return engineErr("sim_stop", s.core.StopAt(atSec))
	})
}

// SessionNow writes the current simulated time to outTimeSec.
func SessionNow(s *Session, outTimeSec *float64) Status {
	return guard(s, "sim_now", func() error {
		if outTimeSec == nil {
			return errors.NilArgument("outTimeSec")
		}
		now, err := s.core.Now()
		if err != nil {
			return engineErr("sim_now", err)
		}
		*outTimeSec = now
		return nil
	})
}

// SessionIsRunning writes whether the engine is inside Run to outRunning.
func SessionIsRunning(s *Session, outRunning *bool) Status {
	return guard(s, "sim_is_running", func() error {
		if outRunning == nil {
			return errors.NilArgument("outRunning")
		}
		*outRunning = s.core.IsRunning()
		return nil
	})
}

// SessionSchedule arms fn as a one-shot callback firing delaySec seconds
// from now. The registration anchors fn until the engine's single
// invocation; if the engine rejects the request the anchor is released
// immediately.
func SessionSchedule(s *Session, delaySec float64, fn VoidFunc) Status {
	return guard(s, "sim_schedule", func() error {
		if fn == nil {
			return errors.NilArgument("fn")
		}
		tok := s.callbacks.Arm(fn, true)
		if err := s.core.Schedule(delaySec, uint64(tok)); err != nil {
			_ = s.callbacks.Retire(tok)
			return engineErr("sim_schedule", err)
		}
		return nil
	})
}

// NodesCreate creates count nodes and appends their fresh handles to out.
func NodesCreate(s *Session, count uint32, out *[]resource.Handle) Status {
	return guard(s, "nodes_create", func() error {
		if out == nil {
			return errors.NilArgument("out")
		}
		if count == 0 {
			return errors.EmptyArray("nodes")
		}
		refs, err := s.core.CreateNodes(count)
		if err != nil {
			return engineErr("nodes_create", err)
		}
		for _, ref := range refs {
			*out = append(*out, s.handles.Allocate(resource.KindNode, ref))
		}
		return nil
	})
}

// InternetInstall installs the IP stack on the given nodes.
func InternetInstall(s *Session, nodes []resource.Handle) Status {
	return guard(s, "internet_install", func() error {
		if len(nodes) == 0 {
			return errors.EmptyArray("nodes")
		}
		refs, err := s.handles.ResolveMany(nodes, resource.KindNode)
		if err != nil {
			return err
		}
		return engineErr("internet_install", s.core.InstallInternet(refs))
	})
}

// P2PInstall links nodes a and b point-to-point and writes the two endpoint
// device handles.
func P2PInstall(s *Session, a, b resource.Handle, dataRate, delay string, mtu uint32, outDevA, outDevB *resource.Handle) Status {
	return guard(s, "p2p_install", func() error {
		if outDevA == nil {
			return errors.NilArgument("outDevA")
		}
		if outDevB == nil {
			return errors.NilArgument("outDevB")
		}
		if dataRate == "" {
			return errors.NilArgument("dataRate")
		}
		if delay == "" {
			return errors.NilArgument("delay")
		}
		ra, err := s.handles.Resolve(a, resource.KindNode)
		if err != nil {
			return err
		}
		rb, err := s.handles.Resolve(b, resource.KindNode)
		if err != nil {
			return err
		}
		da, db, err := s.core.InstallP2P(ra, rb, dataRate, delay, mtu)
		if err != nil {
			return engineErr("p2p_install", err)
		}
		*outDevA = s.handles.Allocate(resource.KindDevice, da)
		*outDevB = s.handles.Allocate(resource.KindDevice, db)
		return nil
	})
}

// CsmaInstall attaches the nodes to a shared bus and appends one device
// handle per node to outDevs.
func CsmaInstall(s *Session, nodes []resource.Handle, dataRate, delay string, outDevs *[]resource.Handle) Status {
	return guard(s, "csma_install", func() error {
		if outDevs == nil {
			return errors.NilArgument("outDevs")
		}
		if len(nodes) == 0 {
			return errors.EmptyArray("nodes")
		}
		if dataRate == "" {
			return errors.NilArgument("dataRate")
		}
		if delay == "" {
			return errors.NilArgument("delay")
		}
		refs, err := s.handles.ResolveMany(nodes, resource.KindNode)
		if err != nil {
			return err
		}
		devs, err := s.core.InstallCsma(refs, dataRate, delay)
		if err != nil {
			return engineErr("csma_install", err)
		}
		for _, d := range devs {
			*outDevs = append(*outDevs, s.handles.Allocate(resource.KindDevice, d))
		}
		return nil
	})
}

// WifiInstallStaAp builds a wifi cell of station nodes around an access
// point, appending station device handles to outStaDevs and writing the AP
// device handle.
func WifiInstallStaAp(s *Session, stas []resource.Handle, ap resource.Handle, standard simbridge.WifiStandard, dataRate string, channel int, outStaDevs *[]resource.Handle, outApDev *resource.Handle) Status {
	return guard(s, "wifi_install_sta_ap", func() error {
		if outStaDevs == nil {
			return errors.NilArgument("outStaDevs")
		}
		if outApDev == nil {
			return errors.NilArgument("outApDev")
		}
		if len(stas) == 0 {
			return errors.EmptyArray("stas")
		}
		if dataRate == "" {
			return errors.NilArgument("dataRate")
		}
		staRefs, err := s.handles.ResolveMany(stas, resource.KindNode)
		if err != nil {
			return err
		}
		apRef, err := s.handles.Resolve(ap, resource.KindNode)
		if err != nil {
			return err
		}
		staDevs, apDev, err := s.core.InstallWifi(staRefs, apRef, standard, dataRate, channel)
		if err != nil {
			return engineErr("wifi_install_sta_ap", err)
		}
		for _, d := range staDevs {
			*outStaDevs = append(*outStaDevs, s.handles.Allocate(resource.KindDevice, d))
		}
		*outApDev = s.handles.Allocate(resource.KindDevice, apDev)
		return nil
	})
}

// MobilitySetConstantPosition pins a node at a static position.
func MobilitySetConstantPosition(s *Session, node resource.Handle, x, y, z float64) Status {
	return guard(s, "mobility_set_constant_position", func() error {
		ref, err := s.handles.Resolve(node, resource.KindNode)
		if err != nil {
			return err
		}
		return engineErr("mobility_set_constant_position", s.core.SetConstantPosition(ref, x, y, z))
	})
}

// Ipv4Assign assigns sequential addresses from networkBase to the devices.
func Ipv4Assign(s *Session, devices []resource.Handle, networkBase, mask string) Status {
	return guard(s, "ipv4_assign", func() error {
		if len(devices) == 0 {
			return errors.EmptyArray("devices")
		}
		if networkBase == "" {
			return errors.NilArgument("networkBase")
		}
		if mask == "" {
			return errors.NilArgument("mask")
		}
		refs, err := s.handles.ResolveMany(devices, resource.KindDevice)
		if err != nil {
			return err
		}
		return engineErr("ipv4_assign", s.core.AssignIPv4(refs, networkBase, mask))
	})
}

// Ipv4PopulateRoutingTables enables global routing over the topology.
func Ipv4PopulateRoutingTables(s *Session) Status {
	return guard(s, "ipv4_populate_routing_tables", func() error {
		return engineErr("ipv4_populate_routing_tables", s.core.PopulateRoutingTables())
	})
}

// AppUDPEchoServer installs an echo server and writes its handle.
func AppUDPEchoServer(s *Session, node resource.Handle, port uint16, outApp *resource.Handle) Status {
	return guard(s, "app_udpecho_server", func() error {
		if outApp == nil {
			return errors.NilArgument("outApp")
		}
		ref, err := s.handles.Resolve(node, resource.KindNode)
		if err != nil {
			return err
		}
		app, err := s.core.InstallUDPEchoServer(ref, port)
		if err != nil {
			return engineErr("app_udpecho_server", err)
		}
		*outApp = s.handles.Allocate(resource.KindApp, app)
		return nil
	})
}

// AppUDPEchoClient installs an echo client and writes its handle.
func AppUDPEchoClient(s *Session, node resource.Handle, dstIP string, port uint16, packetSize uint32, intervalSec float64, maxPackets uint32, outApp *resource.Handle) Status {
	return guard(s, "app_udpecho_client", func() error {
		if outApp == nil {
			return errors.NilArgument("outApp")
		}
		if dstIP == "" {
			return errors.NilArgument("dstIP")
		}
		ref, err := s.handles.Resolve(node, resource.KindNode)
		if err != nil {
			return err
		}
		app, err := s.core.InstallUDPEchoClient(ref, dstIP, port, packetSize, intervalSec, maxPackets)
		if err != nil {
			return engineErr("app_udpecho_client", err)
		}
		*outApp = s.handles.Allocate(resource.KindApp, app)
		return nil
	})
}

// AppStart sets an application's start time.
func AppStart(s *Session, app resource.Handle, atSec float64) Status {
	return guard(s, "app_start", func() error {
		ref, err := s.handles.Resolve(app, resource.KindApp)
		if err != nil {
			return err
		}
		return engineErr("app_start", s.core.StartApp(ref, atSec))
	})
}

// AppStop sets an application's stop time.
func AppStop(s *Session, app resource.Handle, atSec float64) Status {
	return guard(s, "app_stop", func() error {
		ref, err := s.handles.Resolve(app, resource.KindApp)
		if err != nil {
			return err
		}
		return engineErr("app_stop", s.core.StopApp(ref, atSec))
	})
}

// TraceSubscribePacketEvents subscribes to packet events on a device. At
// least one of onTx, onRx must be non-nil. The registration anchors both
// callbacks until the session is destroyed; there is no per-subscription
// unsubscribe, matching the bulk-teardown model.
func TraceSubscribePacketEvents(s *Session, dev resource.Handle, onTx, onRx PacketFunc) Status {
	return guard(s, "trace_subscribe_packet_events", func() error {
		if onTx == nil && onRx == nil {
			return errors.NilArgument("onTx/onRx")
		}
		ref, err := s.handles.Resolve(dev, resource.KindDevice)
		if err != nil {
			return err
		}
		tok := s.callbacks.Arm(&packetHooks{dev: dev, onTx: onTx, onRx: onRx}, false)
		if err := s.core.SubscribeTrace(ref, uint64(tok), onTx != nil, onRx != nil); err != nil {
			_ = s.callbacks.Retire(tok)
			return engineErr("trace_subscribe_packet_events", err)
		}
		return nil
	})
}

// PcapEnable turns on packet capture for a device.
func PcapEnable(s *Session, dev resource.Handle, filePrefix string) Status {
	return guard(s, "pcap_enable", func() error {
		if filePrefix == "" {
			return errors.NilArgument("filePrefix")
		}
		ref, err := s.handles.Resolve(dev, resource.KindDevice)
		if err != nil {
			return err
		}
		return engineErr("pcap_enable", s.core.EnablePcap(ref, filePrefix))
	})
}

// FlowmonInstallAll installs a flow monitor over all nodes and writes its
// handle.
func FlowmonInstallAll(s *Session, outFm *resource.Handle) Status {
	return guard(s, "flowmon_install_all", func() error {
		if outFm == nil {
			return errors.NilArgument("outFm")
		}
		ref, err := s.core.InstallFlowMonitor()
		if err != nil {
			return engineErr("flowmon_install_all", err)
		}
		*outFm = s.handles.Allocate(resource.KindFlowMonitor, ref)
		return nil
	})
}

// FlowmonCollect aggregates flow statistics into outStats.
func FlowmonCollect(s *Session, fm resource.Handle, outStats *simbridge.FlowStats) Status {
	return guard(s, "flowmon_collect", func() error {
		if outStats == nil {
			return errors.NilArgument("outStats")
		}
		ref, err := s.handles.Resolve(fm, resource.KindFlowMonitor)
		if err != nil {
			return err
		}
		stats, err := s.core.CollectFlows(ref)
		if err != nil {
			return engineErr("flowmon_collect", err)
		}
		*outStats = stats
		return nil
	})
}

// ConfigSet applies one tagged attribute value at a configuration path.
func ConfigSet(s *Session, path, name string, value attr.Value) Status {
	return guard(s, "config_set", func() error {
		if path == "" {
			return errors.NilArgument("path")
		}
		if name == "" {
			return errors.NilArgument("attrName")
		}
		return engineErr("config_set", s.core.SetAttribute(path, name, value))
	})
}
