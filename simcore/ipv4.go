package simcore

import (
	"fmt"
	"net/netip"
)

func parseIPv4(s string) (uint32, error) {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return 0, fmt.Errorf("bad IPv4 address %q", s)
	}
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func u32ToAddr(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func parseMask(s string) (uint32, error) {
	m, err := parseIPv4(s)
	if err != nil {
		return 0, fmt.Errorf("bad network mask %q", s)
	}
	// must be contiguous ones followed by zeros
	inv := ^m
	if inv&(inv+1) != 0 {
		return 0, fmt.Errorf("non-contiguous network mask %q", s)
	}
	return m, nil
}

// AssignIPv4 assigns sequential host addresses from networkBase+1 to the
// devices, in order. The pool is bounded by the mask; exhausting it is an
// error.
func (e *Engine) AssignIPv4(devices []uint64, networkBase, mask string) error {
	if e.closed {
		return errClosed
	}
	if len(devices) == 0 {
		return fmt.Errorf("no devices to address")
	}
	base, err := parseIPv4(networkBase)
	if err != nil {
		return err
	}
	m, err := parseMask(mask)
	if err != nil {
		return err
	}
	if base&^m != 0 {
		return fmt.Errorf("network base %s has host bits set", networkBase)
	}
	broadcast := base | ^m

	next := base + 1
	for _, ref := range devices {
		d, err := e.device(ref)
		if err != nil {
			return err
		}
		if next >= broadcast {
			return fmt.Errorf("address pool %s/%s exhausted", networkBase, mask)
		}
		d.addr = u32ToAddr(next)
		next++
	}
	e.routingReady = false
	return nil
}

// PopulateRoutingTables enables global routing over the installed topology.
// Until called (or after the topology changes), packets have no route.
func (e *Engine) PopulateRoutingTables() error {
	if e.closed {
		return errClosed
	}
	e.routingReady = true
	return nil
}

// hop is one link traversal: the packet leaves egress and arrives at ingress.
type hop struct {
	egress  *device
	ingress *device
}

// findRoute runs a breadth-first search from src to the node owning dst.
// Only nodes with the internet stack installed can forward.
func (e *Engine) findRoute(src *node, dst netip.Addr) []hop {
	if !e.routingReady || !src.internet {
		return nil
	}

	type queued struct {
		n    *node
		path []hop
	}
	visited := map[uint64]bool{src.ref: true}
	queue := []queued{{n: src}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, d := range cur.n.devices {
			if d.ch == nil {
				continue
			}
			for _, peer := range d.ch.devices {
				if peer == d || visited[peer.owner.ref] {
					continue
				}
				if !peer.owner.internet {
					continue
				}
				path := append(append([]hop(nil), cur.path...), hop{egress: d, ingress: peer})
				if peer.addr == dst {
					return path
				}
				// a forwarder that merely owns the address on another
				// device still terminates the search
				for _, pd := range peer.owner.devices {
					if pd.addr == dst {
						return path
					}
				}
				visited[peer.owner.ref] = true
				queue = append(queue, queued{n: peer.owner, path: path})
			}
		}
	}
	return nil
}
