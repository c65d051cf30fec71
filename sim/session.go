package sim

import (
	"runtime"
	"sync/atomic"

	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/attr"
	"github.com/netsimio/simbridge/boundary"
	"github.com/netsimio/simbridge/errors"
	"github.com/netsimio/simbridge/resource"
	"github.com/netsimio/simbridge/simcore"
)

// Session is the owning wrapper around one engine context.
type Session struct {
	b      *boundary.Session
	closed atomic.Bool
}

// New creates a session over the given engine factory. A nil factory selects
// the built-in engine. The returned session carries a finalizer as a
// backstop; callers should still Close explicitly.
func New(factory simbridge.CoreFactory) (*Session, error) {
	if factory == nil {
		factory = simcore.Factory
	}
	b, st := boundary.SessionCreate(factory)
	if st != boundary.StatusOK {
		return nil, errors.New(errors.PhaseEngine, errors.KindEngineFault, "engine creation failed")
	}
	s := &Session{b: b}
	runtime.SetFinalizer(s, func(s *Session) { _ = s.Close() })
	return s, nil
}

// Close destroys the underlying session. Idempotent; subsequent wrapper
// operations fail locally.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	runtime.SetFinalizer(s, nil)
	if st := boundary.SessionDestroy(s.b); st != boundary.StatusOK {
		return boundary.Err(s.b)
	}
	return nil
}

// check rejects operations on a closed session before they cross the
// boundary.
func (s *Session) check() error {
	if s.closed.Load() {
		return errors.Closed("session")
	}
	return nil
}

// err converts a boundary status into the recorded error value.
func (s *Session) err(st boundary.Status) error {
	if st == boundary.StatusOK {
		return nil
	}
	return boundary.Err(s.b)
}

// SetSeed seeds the engine's random stream.
func (s *Session) SetSeed(seed uint32) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.err(boundary.SessionSetSeed(s.b, seed))
}

// Run drains the event queue until a stop event fires or no events remain.
// Callbacks fire synchronously on the calling goroutine.
func (s *Session) Run() error {
	if err := s.check(); err != nil {
		return err
	}
	return s.err(boundary.SessionRun(s.b))
}

// Stop schedules a stop event at absolute time atSec.
func (s *Session) Stop(atSec float64) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.err(boundary.SessionStop(s.b, atSec))
}

// Now returns the current simulated time in seconds.
func (s *Session) Now() (float64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	var now float64
	if err := s.err(boundary.SessionNow(s.b, &now)); err != nil {
		return 0, err
	}
	return now, nil
}

// IsRunning reports whether the engine is inside Run.
func (s *Session) IsRunning() (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	var running bool
	if err := s.err(boundary.SessionIsRunning(s.b, &running)); err != nil {
		return false, err
	}
	return running, nil
}

// Schedule arranges for fn to fire once, delaySec seconds from now.
func (s *Session) Schedule(delaySec float64, fn func()) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.err(boundary.SessionSchedule(s.b, delaySec, fn))
}

// CreateNodes creates count nodes.
func (s *Session) CreateNodes(count uint32) ([]*Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var handles []resource.Handle
	if err := s.err(boundary.NodesCreate(s.b, count, &handles)); err != nil {
		return nil, err
	}
	nodes := make([]*Node, len(handles))
	for i, h := range handles {
		nodes[i] = &Node{s: s, h: h}
	}
	return nodes, nil
}

// InstallInternet installs the IP stack on the given nodes.
func (s *Session) InstallInternet(nodes ...*Node) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.err(boundary.InternetInstall(s.b, nodeHandles(nodes)))
}

// InstallP2P links a and b point to point.
func (s *Session) InstallP2P(a, b *Node, dataRate, delay string, mtu uint32) (*Device, *Device, error) {
	if err := s.check(); err != nil {
		return nil, nil, err
	}
	var da, db resource.Handle
	if err := s.err(boundary.P2PInstall(s.b, a.h, b.h, dataRate, delay, mtu, &da, &db)); err != nil {
		return nil, nil, err
	}
	return &Device{s: s, h: da}, &Device{s: s, h: db}, nil
}

// InstallCsma attaches the nodes to a shared bus, one device per node.
func (s *Session) InstallCsma(nodes []*Node, dataRate, delay string) ([]*Device, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var handles []resource.Handle
	if err := s.err(boundary.CsmaInstall(s.b, nodeHandles(nodes), dataRate, delay, &handles)); err != nil {
		return nil, err
	}
	return s.devices(handles), nil
}

// InstallWifi builds a wifi cell of station nodes around an access point.
func (s *Session) InstallWifi(stations []*Node, ap *Node, standard simbridge.WifiStandard, dataRate string, channel int) ([]*Device, *Device, error) {
	if err := s.check(); err != nil {
		return nil, nil, err
	}
	var staDevs []resource.Handle
	var apDev resource.Handle
	st := boundary.WifiInstallStaAp(s.b, nodeHandles(stations), ap.h, standard, dataRate, channel, &staDevs, &apDev)
	if err := s.err(st); err != nil {
		return nil, nil, err
	}
	return s.devices(staDevs), &Device{s: s, h: apDev}, nil
}

// AssignIPv4 assigns sequential addresses from networkBase to the devices.
func (s *Session) AssignIPv4(devices []*Device, networkBase, mask string) error {
	if err := s.check(); err != nil {
		return err
	}
	handles := make([]resource.Handle, len(devices))
	for i, d := range devices {
		handles[i] = d.h
	}
	return s.err(boundary.Ipv4Assign(s.b, handles, networkBase, mask))
}

// PopulateRoutingTables enables global routing over the topology.
func (s *Session) PopulateRoutingTables() error {
	if err := s.check(); err != nil {
		return err
	}
	return s.err(boundary.Ipv4PopulateRoutingTables(s.b))
}

// InstallFlowMonitor monitors every flow in the topology.
func (s *Session) InstallFlowMonitor() (*FlowMonitor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var h resource.Handle
	if err := s.err(boundary.FlowmonInstallAll(s.b, &h)); err != nil {
		return nil, err
	}
	return &FlowMonitor{s: s, h: h}, nil
}

// ConfigSet applies one attribute value at a configuration path.
func (s *Session) ConfigSet(path, name string, value attr.Value) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.err(boundary.ConfigSet(s.b, path, name, value))
}

func (s *Session) devices(handles []resource.Handle) []*Device {
	devs := make([]*Device, len(handles))
	for i, h := range handles {
		devs[i] = &Device{s: s, h: h}
	}
	return devs
}

func nodeHandles(nodes []*Node) []resource.Handle {
	handles := make([]resource.Handle, len(nodes))
	for i, n := range nodes {
		handles[i] = n.h
	}
	return handles
}
