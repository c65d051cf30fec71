package wasmcore

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/netsimio/simbridge"
)

func TestDecodeFlowStats(t *testing.T) {
	buf := make([]byte, flowStatsSize)
	binary.LittleEndian.PutUint64(buf[0:], 10)
	binary.LittleEndian.PutUint64(buf[8:], 9)
	binary.LittleEndian.PutUint64(buf[16:], 10520)
	binary.LittleEndian.PutUint64(buf[24:], 9468)
	binary.LittleEndian.PutUint64(buf[32:], math.Float64bits(0.125))
	binary.LittleEndian.PutUint64(buf[40:], math.Float64bits(0.0625))
	binary.LittleEndian.PutUint32(buf[48:], 2)

	stats := decodeFlowStats(buf)
	if stats.TxPackets != 10 || stats.RxPackets != 9 {
		t.Fatalf("packet counts: %+v", stats)
	}
	if stats.TxBytes != 10520 || stats.RxBytes != 9468 {
		t.Fatalf("byte counts: %+v", stats)
	}
	if stats.DelaySumSec != 0.125 || stats.JitterSumSec != 0.0625 {
		t.Fatalf("sums: %+v", stats)
	}
	if stats.FlowCount != 2 {
		t.Fatalf("flow count: %+v", stats)
	}
}

func TestInstantiateRejectsNilSink(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Instantiate(ctx, rt, nil, nil); err == nil {
		t.Fatal("expected error for nil sink")
	}
}

type sinkStub struct{}

func (sinkStub) OnScheduled(uint64) {}

func (sinkStub) OnPacket(uint64, simbridge.TraceDir, uint64, float64, uint32) {}

func TestInstantiateRejectsBadBinary(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	_, err := Instantiate(ctx, rt, []byte("not wasm"), sinkStub{})
	if err == nil {
		t.Fatal("expected error for invalid binary")
	}
}
