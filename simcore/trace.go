package simcore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/netsimio/simbridge"
)

type traceSub struct {
	token  uint64
	wantTx bool
	wantRx bool
}

// SubscribeTrace attaches a recurring trace subscription to a device. The
// sink's OnPacket fires with token once per qualifying event until the
// engine is destroyed.
func (e *Engine) SubscribeTrace(deviceRef uint64, token uint64, wantTx, wantRx bool) error {
	if e.closed {
		return errClosed
	}
	d, err := e.device(deviceRef)
	if err != nil {
		return err
	}
	if !wantTx && !wantRx {
		return fmt.Errorf("trace subscription selects no events")
	}
	d.subs = append(d.subs, traceSub{token: token, wantTx: wantTx, wantRx: wantRx})
	return nil
}

// deviceEvent fires trace subscriptions and pcap capture for one packet
// leaving (tx) or arriving at (rx) a device.
func (e *Engine) deviceEvent(d *device, tx bool, wireBytes uint32) {
	dir := simbridge.TraceRx
	if tx {
		dir = simbridge.TraceTx
	}
	for _, sub := range d.subs {
		if tx && !sub.wantTx || !tx && !sub.wantRx {
			continue
		}
		e.sink.OnPacket(sub.token, dir, d.ref, e.clock, wireBytes)
	}
	if d.pcap != nil {
		d.pcap.record(e.clock, wireBytes)
	}
}

// EnablePcap starts packet capture on a device, writing classic pcap to
// <filePrefix>-<deviceRef>.pcap.
func (e *Engine) EnablePcap(deviceRef uint64, filePrefix string) error {
	if e.closed {
		return errClosed
	}
	d, err := e.device(deviceRef)
	if err != nil {
		return err
	}
	if filePrefix == "" {
		return fmt.Errorf("empty pcap file prefix")
	}
	if d.pcap != nil {
		return fmt.Errorf("pcap already enabled on device %d", deviceRef)
	}
	p, err := newPcapWriter(fmt.Sprintf("%s-%d.pcap", filePrefix, deviceRef))
	if err != nil {
		return err
	}
	d.pcap = p
	e.pcaps = append(e.pcaps, p)
	return nil
}

const (
	pcapMagic    = 0xa1b2c3d4
	pcapSnaplen  = 65535
	pcapLinkRaw  = 101 // LINKTYPE_RAW: packets begin with the IPv4 header
	pcapVerMajor = 2
	pcapVerMinor = 4
)

// pcapWriter emits classic pcap. Captured packets are synthetic: an IPv4+UDP
// header shape with a zero payload, sized to the wire length.
type pcapWriter struct {
	f *os.File
	w *bufio.Writer
}

func newPcapWriter(path string) (*pcapWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap file: %w", err)
	}
	w := bufio.NewWriter(f)

	var hdr [24]byte
	binary.LittleEndian.PutUint32(hdr[0:], pcapMagic)
	binary.LittleEndian.PutUint16(hdr[4:], pcapVerMajor)
	binary.LittleEndian.PutUint16(hdr[6:], pcapVerMinor)
	// thiszone and sigfigs stay zero
	binary.LittleEndian.PutUint32(hdr[16:], pcapSnaplen)
	binary.LittleEndian.PutUint32(hdr[20:], pcapLinkRaw)
	if _, err := w.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &pcapWriter{f: f, w: w}, nil
}

func (p *pcapWriter) record(timeSec float64, wireBytes uint32) {
	if p.w == nil {
		return
	}
	sec := uint32(timeSec)
	usec := uint32((timeSec - float64(sec)) * 1e6)

	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], sec)
	binary.LittleEndian.PutUint32(hdr[4:], usec)
	binary.LittleEndian.PutUint32(hdr[8:], wireBytes)
	binary.LittleEndian.PutUint32(hdr[12:], wireBytes)
	if _, err := p.w.Write(hdr[:]); err != nil {
		return
	}
	p.w.Write(make([]byte, wireBytes))
}

func (p *pcapWriter) close() {
	if p.w != nil {
		p.w.Flush()
		p.w = nil
	}
	if p.f != nil {
		p.f.Close()
		p.f = nil
	}
}
