package callback

import (
	"sync"

	"go.uber.org/zap"

	"github.com/netsimio/simbridge/errors"
)

// Token identifies one registration. Tokens are monotonic and never reused,
// mirroring the handle discipline of the boundary. Token 0 is invalid.
type Token uint64

type state int32

const (
	stateArmed state = iota
	stateFiring
)

type registration struct {
	fn      any
	state   state
	oneShot bool
	// retire requested while firing; honored when the invocation returns
	zombie bool
}

// Registry holds the live registrations for one owner (a session). It is the
// liveness anchor: as long as an entry exists, the managed function it holds
// stays reachable.
type Registry struct {
	mu      sync.Mutex
	entries map[Token]*registration
	next    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Token]*registration, 8),
	}
}

// Arm registers a managed function and returns its token. A one-shot
// registration retires itself after its single invocation; a recurring one
// stays armed until Retire or RetireAll.
func (r *Registry) Arm(fn any, oneShot bool) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	tok := Token(r.next)
	r.entries[tok] = &registration{fn: fn, oneShot: oneShot}
	return tok
}

// Fire transitions a registration to Firing, runs invoke with the anchored
// function, and then re-arms or retires it. A panic escaping invoke is
// recovered, logged, and swallowed here so it never reaches the engine's
// call stack. Firing an unknown or already-firing token is an error.
func (r *Registry) Fire(tok Token, invoke func(fn any)) error {
	r.mu.Lock()
	reg, ok := r.entries[tok]
	if !ok {
		r.mu.Unlock()
		return errors.Newf(errors.PhaseCallback, errors.KindNotFound, "callback token %d is not armed", uint64(tok))
	}
	if reg.state != stateArmed {
		r.mu.Unlock()
		return errors.Newf(errors.PhaseCallback, errors.KindBadState, "callback token %d is already firing", uint64(tok))
	}
	reg.state = stateFiring
	fn := reg.fn
	r.mu.Unlock()

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				Logger().Error("panic in managed callback",
					zap.Uint64("token", uint64(tok)),
					zap.Any("panic", rec),
				)
			}
		}()
		invoke(fn)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if reg.oneShot || reg.zombie {
		delete(r.entries, tok)
		return nil
	}
	reg.state = stateArmed
	return nil
}

// Retire releases a registration's anchor. Retiring a token while it is
// firing is disallowed; retiring an unknown token is an error rather than a
// silent no-op so double releases surface during development.
func (r *Registry) Retire(tok Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.entries[tok]
	if !ok {
		return errors.Newf(errors.PhaseCallback, errors.KindNotFound, "callback token %d is not armed", uint64(tok))
	}
	if reg.state == stateFiring {
		return errors.Newf(errors.PhaseCallback, errors.KindBadState, "cannot retire callback token %d while it is firing", uint64(tok))
	}
	delete(r.entries, tok)
	return nil
}

// RetireAll releases every anchor at owner teardown. A registration that is
// firing at that moment is marked and released when its invocation returns.
func (r *Registry) RetireAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tok, reg := range r.entries {
		if reg.state == stateFiring {
			reg.zombie = true
			continue
		}
		delete(r.entries, tok)
	}
}

// Live returns the number of armed or firing registrations.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
