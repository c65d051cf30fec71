package boundary

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/callback"
	"github.com/netsimio/simbridge/errors"
	"github.com/netsimio/simbridge/resource"
)

// Status is the two-valued result of every boundary function.
type Status int32

const (
	StatusOK    Status = 0
	StatusError Status = -1
)

// VoidFunc is a managed callback for scheduled events.
type VoidFunc func()

// PacketFunc is a managed callback for packet trace events. deviceID is the
// handle of the subscribed device.
type PacketFunc func(deviceID uint64, timeSec float64, bytes uint32)

// packetHooks anchors the pair of trace callbacks for one subscription.
type packetHooks struct {
	onTx PacketFunc
	onRx PacketFunc
	dev  resource.Handle
}

// Session is one engine context plus everything scoped to it: the handle
// table, the callback anchors, and the last-error slot. Sessions are created
// once and destroyed once, and must not be shared across goroutines (the
// error slot alone is lock-protected, because it is written from the engine's
// run context and read from the caller's).
type Session struct {
	core      simbridge.Core
	handles   *resource.Table
	callbacks *callback.Registry

	errMu      sync.Mutex
	lastErr    string
	lastErrVal error
	destroyed  atomic.Bool
}

// SessionCreate builds an engine through factory and wraps it in a new
// session. On factory failure there is no session to carry detail, so the
// error is logged and nil is returned with error status.
func SessionCreate(factory simbridge.CoreFactory) (*Session, Status) {
	if factory == nil {
		return nil, StatusError
	}
	s := &Session{
		handles:   resource.NewTable(),
		callbacks: callback.NewRegistry(),
	}
	core, err := factory(s)
	if err != nil {
		callback.Logger().Error("engine creation failed", zap.Error(err))
		return nil, StatusError
	}
	s.core = core
	return s, StatusOK
}

// SessionDestroy tears down the session: the engine is closed, every
// callback anchor is released, and the handle table is dropped in bulk.
// Destroy is idempotent; errors from the engine teardown are reported but
// teardown always completes.
func SessionDestroy(s *Session) Status {
	if s == nil {
		return StatusOK
	}
	if !s.destroyed.CompareAndSwap(false, true) {
		return StatusOK
	}

	st := StatusOK
	if err := s.core.Close(); err != nil {
		s.setFailure(errors.Wrap(errors.PhaseTeardown, errors.KindEngineFault, "session_destroy", err))
		st = StatusError
	}
	s.callbacks.RetireAll()
	s.handles.Teardown()
	return st
}

func (s *Session) setFailure(err error) {
	s.errMu.Lock()
	s.lastErr = err.Error()
	s.lastErrVal = err
	s.errMu.Unlock()
}

func (s *Session) errorString() string {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// noSessionError is returned by LastError when the session pointer itself is
// invalid; a fixed fallback is safer than faulting.
const noSessionError = "no simulation context"

// LastError copies the session's last error into buf, truncated to
// len(buf)-1 bytes and always NUL-terminated. A nil session yields the fixed
// fallback message.
func LastError(s *Session, buf []byte) Status {
	if len(buf) == 0 {
		return StatusError
	}
	msg := noSessionError
	if s != nil {
		msg = s.errorString()
	}
	n := copy(buf[:len(buf)-1], msg)
	buf[n] = 0
	return StatusOK
}

// ErrorString returns the last error without the C-style buffer dance, for
// Go-side callers.
func ErrorString(s *Session) string {
	if s == nil {
		return noSessionError
	}
	return s.errorString()
}

// Err returns the last error as a value so Go-side callers keep the
// structured type instead of the flattened message.
func Err(s *Session) error {
	if s == nil {
		return errors.New(errors.PhaseValidate, errors.KindNilArgument, noSessionError)
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErrVal
}

// Handles exposes the session's live handle count for diagnostics.
func (s *Session) Handles() int {
	return s.handles.Len()
}

// Callbacks exposes the session's live anchor count for diagnostics.
func (s *Session) Callbacks() int {
	return s.callbacks.Live()
}

// OnScheduled implements simbridge.EventSink. The token's anchor is released
// by Fire immediately after this single invocation: the engine guarantees a
// scheduled event fires exactly once.
func (s *Session) OnScheduled(token uint64) {
	err := s.callbacks.Fire(callback.Token(token), func(fn any) {
		fn.(VoidFunc)()
	})
	if err != nil {
		callback.Logger().Warn("dropped scheduled callback", zap.Uint64("token", token), zap.Error(err))
	}
}

// OnPacket implements simbridge.EventSink for recurring trace subscriptions;
// the anchor stays armed until session destruction.
func (s *Session) OnPacket(token uint64, dir simbridge.TraceDir, deviceRef uint64, timeSec float64, bytes uint32) {
	err := s.callbacks.Fire(callback.Token(token), func(fn any) {
		h := fn.(*packetHooks)
		if dir == simbridge.TraceTx && h.onTx != nil {
			h.onTx(uint64(h.dev), timeSec, bytes)
		}
		if dir == simbridge.TraceRx && h.onRx != nil {
			h.onRx(uint64(h.dev), timeSec, bytes)
		}
	})
	if err != nil {
		callback.Logger().Warn("dropped trace callback", zap.Uint64("token", token), zap.Error(err))
	}
}

// guard wraps one boundary operation: nil/destroyed session checks first,
// then fn, with recover at the outer edge so neither a managed panic nor an
// engine panic unwinds past the boundary function.
func guard(s *Session, op string, fn func() error) (st Status) {
	if s == nil {
		return StatusError
	}
	if s.destroyed.Load() {
		s.setFailure(errors.Newf(errors.PhaseValidate, errors.KindClosed, "%s: session already destroyed", op))
		return StatusError
	}
	defer func() {
		if r := recover(); r != nil {
			s.setFailure(errors.Newf(errors.PhaseEngine, errors.KindBadState, "%s: panic: %v", op, r))
			st = StatusError
		}
	}()
	if err := fn(); err != nil {
		s.setFailure(err)
		return StatusError
	}
	return StatusOK
}

// engineErr wraps a plain engine rejection in the operation's name; usage
// faults from validation pass through already structured.
func engineErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.EngineFault(op, err)
}
