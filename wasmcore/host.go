package wasmcore

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/callback"
	"github.com/netsimio/simbridge/errors"
)

// hostModule is the import namespace the guest binds its callbacks against.
const hostModule = "simbridge"

// registerHost instantiates the "simbridge" host module: the trampolines a
// guest engine calls to reach managed code. Each trampoline recovers panics
// so a fault in managed callback code cannot unwind into guest frames.
func (c *Core) registerHost(ctx context.Context, rt wazero.Runtime) error {
	builder := rt.NewHostModuleBuilder(hostModule)

	builder.NewFunctionBuilder().
		WithFunc(c.onScheduled).
		WithParameterNames("token").
		Export("on_scheduled")

	builder.NewFunctionBuilder().
		WithFunc(c.onPacket).
		WithParameterNames("token", "dir", "device", "time_sec", "bytes").
		Export("on_packet")

	builder.NewFunctionBuilder().
		WithFunc(c.hostSetError).
		WithParameterNames("ptr", "length").
		Export("set_error")

	if _, err := builder.Instantiate(ctx); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindEngineFault, "host module registration failed", err)
	}
	return nil
}

func (c *Core) onScheduled(ctx context.Context, mod api.Module, token uint64) {
	defer trampolineRecover("on_scheduled")
	c.sink.OnScheduled(token)
}

func (c *Core) onPacket(ctx context.Context, mod api.Module, token uint64, dir uint32, device uint64, timeSec float64, bytes uint32) {
	defer trampolineRecover("on_packet")
	c.sink.OnPacket(token, simbridge.TraceDir(dir), device, timeSec, bytes)
}

// hostSetError stores the guest's error detail ahead of a failing status
// return. Reads through the calling module's memory rather than the cached
// helper so errors raised during guest startup still land.
func (c *Core) hostSetError(ctx context.Context, mod api.Module, ptr, length uint32) {
	defer trampolineRecover("set_error")
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		c.setGuestErr("engine reported failure with unreadable detail")
		return
	}
	c.setGuestErr(string(buf))
}

func trampolineRecover(name string) {
	if r := recover(); r != nil {
		callback.Logger().Error("panic in host trampoline",
			zap.String("trampoline", name), zap.Any("panic", r))
	}
}
