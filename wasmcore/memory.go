package wasmcore

import (
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"

	"github.com/netsimio/simbridge/errors"
)

// memory wraps the guest's linear memory plus its alloc/free exports so
// strings and arrays can cross the boundary as (ptr, len) pairs.
type memory struct {
	mem   api.Memory
	alloc api.Function
	free  api.Function
}

func newMemory(mod api.Module) (*memory, error) {
	m := &memory{
		mem:   mod.Memory(),
		alloc: mod.ExportedFunction("alloc"),
		free:  mod.ExportedFunction("free"),
	}
	if m.mem == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound, "guest exports no memory")
	}
	if m.alloc == nil || m.free == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound, "guest missing alloc/free exports")
	}
	return m, nil
}

// region is one guest allocation; release returns it to the guest allocator.
type region struct {
	ptr  uint32
	size uint32
}

func (m *memory) allocate(ctx context.Context, size uint32) (region, error) {
	if size == 0 {
		size = 1
	}
	res, err := m.alloc.Call(ctx, uint64(size))
	if err != nil {
		return region{}, errors.Wrap(errors.PhaseEngine, errors.KindEngineFault, "guest alloc failed", err)
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return region{}, errors.New(errors.PhaseEngine, errors.KindEngineFault, "guest allocator returned null")
	}
	return region{ptr: ptr, size: size}, nil
}

func (m *memory) release(ctx context.Context, r region) {
	if r.ptr == 0 {
		return
	}
	// A release failure only leaks guest memory; the call itself succeeded.
	_, _ = m.free.Call(ctx, uint64(r.ptr), uint64(r.size))
}

// writeString copies s into guest memory. The caller releases the region
// after the guest call returns; the guest borrows, never keeps, the bytes.
func (m *memory) writeString(ctx context.Context, s string) (region, error) {
	r, err := m.allocate(ctx, uint32(len(s)))
	if err != nil {
		return region{}, err
	}
	if len(s) > 0 && !m.mem.WriteString(r.ptr, s) {
		m.release(ctx, r)
		return region{}, errors.New(errors.PhaseEngine, errors.KindEngineFault, "guest memory write out of range")
	}
	return r, nil
}

// writeU64s copies a little-endian uint64 array into guest memory.
func (m *memory) writeU64s(ctx context.Context, vals []uint64) (region, error) {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[8*i:], v)
	}
	r, err := m.allocate(ctx, uint32(len(buf)))
	if err != nil {
		return region{}, err
	}
	if len(buf) > 0 && !m.mem.Write(r.ptr, buf) {
		m.release(ctx, r)
		return region{}, errors.New(errors.PhaseEngine, errors.KindEngineFault, "guest memory write out of range")
	}
	return r, nil
}

// readU64s reads count little-endian uint64 values from guest memory.
func (m *memory) readU64s(ptr uint32, count int) ([]uint64, error) {
	buf, ok := m.mem.Read(ptr, uint32(8*count))
	if !ok {
		return nil, errors.New(errors.PhaseEngine, errors.KindEngineFault, "guest memory read out of range")
	}
	vals := make([]uint64, count)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint64(buf[8*i:])
	}
	return vals, nil
}

func (m *memory) readBytes(ptr, length uint32) ([]byte, error) {
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, errors.New(errors.PhaseEngine, errors.KindEngineFault, "guest memory read out of range")
	}
	return buf, nil
}
