package wasmcore

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/attr"
	"github.com/netsimio/simbridge/errors"
)

// guestExports is every engine function the guest must provide, beyond the
// alloc/free pair the memory helper checks itself.
var guestExports = []string{
	"sim_create", "sim_destroy", "sim_set_seed", "sim_run", "sim_stop",
	"sim_now", "sim_is_running", "sim_schedule",
	"nodes_create", "internet_install", "p2p_install", "csma_install",
	"wifi_install_sta_ap", "mobility_set_constant_position",
	"ipv4_assign", "ipv4_populate_routing_tables",
	"app_udpecho_server", "app_udpecho_client", "app_start", "app_stop",
	"trace_subscribe", "pcap_enable",
	"flowmon_install_all", "flowmon_collect", "config_set",
}

// flowStatsSize is the wire size of the guest's flow statistics record:
// four uint64 counters, two float64 sums, one uint32 count.
const flowStatsSize = 52

// Core drives a wasm-compiled engine through its guest exports. It owns the
// wazero runtime it was instantiated in.
type Core struct {
	ctx     context.Context
	rt      wazero.Runtime
	mod     api.Module
	mem     *memory
	sink    simbridge.EventSink
	exports map[string]api.Function

	errMu    sync.Mutex
	guestErr string
	closed   bool
}

// Instantiate registers the host trampolines in rt, instantiates the guest
// binary, and creates the engine inside it. The returned core owns rt and
// closes it on Close.
func Instantiate(ctx context.Context, rt wazero.Runtime, guest []byte, sink simbridge.EventSink) (*Core, error) {
	if sink == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNilArgument, "nil event sink")
	}
	c := &Core{ctx: ctx, rt: rt, sink: sink}

	if err := c.registerHost(ctx, rt); err != nil {
		return nil, err
	}

	mod, err := rt.InstantiateWithConfig(ctx, guest,
		wazero.NewModuleConfig().WithName("engine").WithStartFunctions("_initialize"))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindEngineFault, "guest instantiation failed", err)
	}
	c.mod = mod

	c.mem, err = newMemory(mod)
	if err != nil {
		return nil, err
	}

	c.exports = make(map[string]api.Function, len(guestExports))
	for _, name := range guestExports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			return nil, errors.Newf(errors.PhaseLoad, errors.KindNotFound, "guest missing export %q", name)
		}
		c.exports[name] = fn
	}

	if err := c.call("sim_create"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Core) setGuestErr(msg string) {
	c.errMu.Lock()
	c.guestErr = msg
	c.errMu.Unlock()
}

func (c *Core) takeGuestErr() string {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	msg := c.guestErr
	c.guestErr = ""
	if msg == "" {
		msg = "engine reported failure without detail"
	}
	return msg
}

// call invokes a status-returning guest export. A nonzero status becomes an
// error carrying whatever detail the guest pushed through set_error.
func (c *Core) call(name string, args ...uint64) error {
	if c.closed {
		return errors.Closed("engine")
	}
	res, err := c.exports[name].Call(c.ctx, args...)
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindEngineFault, name+" trapped", err)
	}
	if status := int32(uint32(res[0])); status != 0 {
		return errors.New(errors.PhaseEngine, errors.KindEngineFault, c.takeGuestErr())
	}
	return nil
}

func (c *Core) SetSeed(seed uint32) error {
	return c.call("sim_set_seed", uint64(seed))
}

func (c *Core) Run() error {
	return c.call("sim_run")
}

func (c *Core) StopAt(atSec float64) error {
	return c.call("sim_stop", math.Float64bits(atSec))
}

func (c *Core) Now() (float64, error) {
	if c.closed {
		return 0, errors.Closed("engine")
	}
	out, err := c.mem.allocate(c.ctx, 8)
	if err != nil {
		return 0, err
	}
	defer c.mem.release(c.ctx, out)
	if err := c.call("sim_now", uint64(out.ptr)); err != nil {
		return 0, err
	}
	buf, err := c.mem.readBytes(out.ptr, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

func (c *Core) IsRunning() bool {
	if c.closed {
		return false
	}
	res, err := c.exports["sim_is_running"].Call(c.ctx)
	if err != nil {
		return false
	}
	return res[0] != 0
}

func (c *Core) Schedule(delaySec float64, token uint64) error {
	return c.call("sim_schedule", math.Float64bits(delaySec), token)
}

func (c *Core) CreateNodes(count uint32) ([]uint64, error) {
	out, err := c.mem.allocate(c.ctx, 8*count)
	if err != nil {
		return nil, err
	}
	defer c.mem.release(c.ctx, out)
	if err := c.call("nodes_create", uint64(count), uint64(out.ptr)); err != nil {
		return nil, err
	}
	return c.mem.readU64s(out.ptr, int(count))
}

func (c *Core) InstallInternet(nodes []uint64) error {
	arr, err := c.mem.writeU64s(c.ctx, nodes)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, arr)
	return c.call("internet_install", uint64(arr.ptr), uint64(len(nodes)))
}

func (c *Core) InstallP2P(a, b uint64, dataRate, delay string, mtu uint32) (uint64, uint64, error) {
	rate, err := c.mem.writeString(c.ctx, dataRate)
	if err != nil {
		return 0, 0, err
	}
	defer c.mem.release(c.ctx, rate)
	del, err := c.mem.writeString(c.ctx, delay)
	if err != nil {
		return 0, 0, err
	}
	defer c.mem.release(c.ctx, del)
	out, err := c.mem.allocate(c.ctx, 16)
	if err != nil {
		return 0, 0, err
	}
	defer c.mem.release(c.ctx, out)

	err = c.call("p2p_install", a, b,
		uint64(rate.ptr), uint64(len(dataRate)),
		uint64(del.ptr), uint64(len(delay)),
		uint64(mtu), uint64(out.ptr))
	if err != nil {
		return 0, 0, err
	}
	devs, err := c.mem.readU64s(out.ptr, 2)
	if err != nil {
		return 0, 0, err
	}
	return devs[0], devs[1], nil
}

func (c *Core) InstallCsma(nodes []uint64, dataRate, delay string) ([]uint64, error) {
	arr, err := c.mem.writeU64s(c.ctx, nodes)
	if err != nil {
		return nil, err
	}
	defer c.mem.release(c.ctx, arr)
	rate, err := c.mem.writeString(c.ctx, dataRate)
	if err != nil {
		return nil, err
	}
	defer c.mem.release(c.ctx, rate)
	del, err := c.mem.writeString(c.ctx, delay)
	if err != nil {
		return nil, err
	}
	defer c.mem.release(c.ctx, del)
	out, err := c.mem.allocate(c.ctx, uint32(8*len(nodes)))
	if err != nil {
		return nil, err
	}
	defer c.mem.release(c.ctx, out)

	err = c.call("csma_install", uint64(arr.ptr), uint64(len(nodes)),
		uint64(rate.ptr), uint64(len(dataRate)),
		uint64(del.ptr), uint64(len(delay)),
		uint64(out.ptr))
	if err != nil {
		return nil, err
	}
	return c.mem.readU64s(out.ptr, len(nodes))
}

func (c *Core) InstallWifi(stations []uint64, ap uint64, standard simbridge.WifiStandard, dataRate string, channel int) ([]uint64, uint64, error) {
	arr, err := c.mem.writeU64s(c.ctx, stations)
	if err != nil {
		return nil, 0, err
	}
	defer c.mem.release(c.ctx, arr)
	rate, err := c.mem.writeString(c.ctx, dataRate)
	if err != nil {
		return nil, 0, err
	}
	defer c.mem.release(c.ctx, rate)
	outSta, err := c.mem.allocate(c.ctx, uint32(8*len(stations)))
	if err != nil {
		return nil, 0, err
	}
	defer c.mem.release(c.ctx, outSta)
	outAp, err := c.mem.allocate(c.ctx, 8)
	if err != nil {
		return nil, 0, err
	}
	defer c.mem.release(c.ctx, outAp)

	err = c.call("wifi_install_sta_ap", uint64(arr.ptr), uint64(len(stations)), ap,
		uint64(uint32(standard)),
		uint64(rate.ptr), uint64(len(dataRate)),
		uint64(uint32(channel)),
		uint64(outSta.ptr), uint64(outAp.ptr))
	if err != nil {
		return nil, 0, err
	}
	staDevs, err := c.mem.readU64s(outSta.ptr, len(stations))
	if err != nil {
		return nil, 0, err
	}
	apDev, err := c.mem.readU64s(outAp.ptr, 1)
	if err != nil {
		return nil, 0, err
	}
	return staDevs, apDev[0], nil
}

func (c *Core) SetConstantPosition(node uint64, x, y, z float64) error {
	return c.call("mobility_set_constant_position", node,
		math.Float64bits(x), math.Float64bits(y), math.Float64bits(z))
}

func (c *Core) AssignIPv4(devices []uint64, networkBase, mask string) error {
	arr, err := c.mem.writeU64s(c.ctx, devices)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, arr)
	base, err := c.mem.writeString(c.ctx, networkBase)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, base)
	m, err := c.mem.writeString(c.ctx, mask)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, m)

	return c.call("ipv4_assign", uint64(arr.ptr), uint64(len(devices)),
		uint64(base.ptr), uint64(len(networkBase)),
		uint64(m.ptr), uint64(len(mask)))
}

func (c *Core) PopulateRoutingTables() error {
	return c.call("ipv4_populate_routing_tables")
}

func (c *Core) InstallUDPEchoServer(node uint64, port uint16) (uint64, error) {
	out, err := c.mem.allocate(c.ctx, 8)
	if err != nil {
		return 0, err
	}
	defer c.mem.release(c.ctx, out)
	if err := c.call("app_udpecho_server", node, uint64(port), uint64(out.ptr)); err != nil {
		return 0, err
	}
	app, err := c.mem.readU64s(out.ptr, 1)
	if err != nil {
		return 0, err
	}
	return app[0], nil
}

func (c *Core) InstallUDPEchoClient(node uint64, dstIP string, port uint16, packetSize uint32, intervalSec float64, maxPackets uint32) (uint64, error) {
	ip, err := c.mem.writeString(c.ctx, dstIP)
	if err != nil {
		return 0, err
	}
	defer c.mem.release(c.ctx, ip)
	out, err := c.mem.allocate(c.ctx, 8)
	if err != nil {
		return 0, err
	}
	defer c.mem.release(c.ctx, out)

	err = c.call("app_udpecho_client", node,
		uint64(ip.ptr), uint64(len(dstIP)),
		uint64(port), uint64(packetSize),
		math.Float64bits(intervalSec), uint64(maxPackets), uint64(out.ptr))
	if err != nil {
		return 0, err
	}
	app, err := c.mem.readU64s(out.ptr, 1)
	if err != nil {
		return 0, err
	}
	return app[0], nil
}

func (c *Core) StartApp(app uint64, atSec float64) error {
	return c.call("app_start", app, math.Float64bits(atSec))
}

func (c *Core) StopApp(app uint64, atSec float64) error {
	return c.call("app_stop", app, math.Float64bits(atSec))
}

func (c *Core) SubscribeTrace(device uint64, token uint64, wantTx, wantRx bool) error {
	return c.call("trace_subscribe", device, token, boolArg(wantTx), boolArg(wantRx))
}

func (c *Core) EnablePcap(device uint64, filePrefix string) error {
	prefix, err := c.mem.writeString(c.ctx, filePrefix)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, prefix)
	return c.call("pcap_enable", device, uint64(prefix.ptr), uint64(len(filePrefix)))
}

func (c *Core) InstallFlowMonitor() (uint64, error) {
	out, err := c.mem.allocate(c.ctx, 8)
	if err != nil {
		return 0, err
	}
	defer c.mem.release(c.ctx, out)
	if err := c.call("flowmon_install_all", uint64(out.ptr)); err != nil {
		return 0, err
	}
	fm, err := c.mem.readU64s(out.ptr, 1)
	if err != nil {
		return 0, err
	}
	return fm[0], nil
}

func (c *Core) CollectFlows(monitor uint64) (simbridge.FlowStats, error) {
	out, err := c.mem.allocate(c.ctx, flowStatsSize)
	if err != nil {
		return simbridge.FlowStats{}, err
	}
	defer c.mem.release(c.ctx, out)
	if err := c.call("flowmon_collect", monitor, uint64(out.ptr)); err != nil {
		return simbridge.FlowStats{}, err
	}
	buf, err := c.mem.readBytes(out.ptr, flowStatsSize)
	if err != nil {
		return simbridge.FlowStats{}, err
	}
	return decodeFlowStats(buf), nil
}

// SetAttribute flattens the tagged value for the guest: the kind selects
// which of the scalar slot, double slot, or string region carries payload.
func (c *Core) SetAttribute(path, name string, value attr.Value) error {
	p, err := c.mem.writeString(c.ctx, path)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, p)
	n, err := c.mem.writeString(c.ctx, name)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, n)

	var scalar uint64
	var double float64
	var str string
	switch value.Kind() {
	case attr.KindBool:
		b, _ := value.AsBool()
		scalar = boolArg(b)
	case attr.KindUint:
		scalar, _ = value.AsUint()
	case attr.KindDouble:
		double, _ = value.AsDouble()
	case attr.KindString:
		str, _ = value.AsString()
	}
	s, err := c.mem.writeString(c.ctx, str)
	if err != nil {
		return err
	}
	defer c.mem.release(c.ctx, s)

	return c.call("config_set",
		uint64(p.ptr), uint64(len(path)),
		uint64(n.ptr), uint64(len(name)),
		uint64(value.Kind()), scalar, math.Float64bits(double),
		uint64(s.ptr), uint64(len(str)))
}

// Close destroys the guest engine and tears down the owned runtime.
// Idempotent; the destroy result is reported but teardown always completes.
func (c *Core) Close() error {
	if c.closed {
		return nil
	}
	err := c.call("sim_destroy")
	c.closed = true
	if cerr := c.rt.Close(c.ctx); cerr != nil && err == nil {
		err = errors.Wrap(errors.PhaseTeardown, errors.KindEngineFault, "runtime close failed", cerr)
	}
	return err
}

func boolArg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func decodeFlowStats(buf []byte) simbridge.FlowStats {
	return simbridge.FlowStats{
		TxPackets:    binary.LittleEndian.Uint64(buf[0:]),
		RxPackets:    binary.LittleEndian.Uint64(buf[8:]),
		TxBytes:      binary.LittleEndian.Uint64(buf[16:]),
		RxBytes:      binary.LittleEndian.Uint64(buf[24:]),
		DelaySumSec:  math.Float64frombits(binary.LittleEndian.Uint64(buf[32:])),
		JitterSumSec: math.Float64frombits(binary.LittleEndian.Uint64(buf[40:])),
		FlowCount:    binary.LittleEndian.Uint32(buf[48:]),
	}
}
