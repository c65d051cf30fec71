package loader

import (
	"context"
	"os"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/netsimio/simbridge"
	"github.com/netsimio/simbridge/errors"
	"github.com/netsimio/simbridge/wasmcore"
)

// Loader holds a verified engine module ready for instantiation.
type Loader struct {
	logger *zap.Logger
	guest  []byte
	cache  wazero.CompilationCache
	path   string
}

// New resolves, reads, and compile-checks the engine module. Any failure
// here is fatal for engine startup; callers should not retry.
func New(ctx context.Context, cfg *Config, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("engine module resolved", zap.String("path", path))

	guest, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindNotFound, "engine module unreadable", err)
	}

	cache := wazero.NewCompilationCache()

	// Compile once up front so a broken module fails at startup, not at
	// session creation; the cache keeps the work for later instantiations.
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(cache))
	defer rt.Close(ctx)
	if _, err := rt.CompileModule(ctx, guest); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindEngineFault, "engine module compilation failed", err)
	}

	logger.Info("engine module loaded", zap.Int("size_bytes", len(guest)))
	return &Loader{logger: logger, guest: guest, cache: cache, path: path}, nil
}

// Path returns where the engine module was found.
func (l *Loader) Path() string { return l.path }

// Factory returns an engine factory. Each invocation instantiates the guest
// in a fresh wazero runtime owned by the returned core.
func (l *Loader) Factory() simbridge.CoreFactory {
	return func(sink simbridge.EventSink) (simbridge.Core, error) {
		ctx := context.Background()
		rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(l.cache))
		core, err := wasmcore.Instantiate(ctx, rt, l.guest, sink)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		return core, nil
	}
}

// Close releases the shared compilation cache.
func (l *Loader) Close(ctx context.Context) error {
	return l.cache.Close(ctx)
}
