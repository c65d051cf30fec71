package simcore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/netsimio/simbridge/attr"
)

// SetAttribute applies a configuration attribute addressed by a path such as
// "/NodeList/0/DeviceList/1" ($-prefixed type-qualifier segments are
// tolerated and skipped). Recognized device attributes are Mtu (uint),
// DataRate and Delay (string, applied to the device's channel). Every applied
// value is also retained for inspection.
func (e *Engine) SetAttribute(path, name string, value attr.Value) error {
	if e.closed {
		return errClosed
	}
	if path == "" || name == "" {
		return fmt.Errorf("empty attribute path or name")
	}

	d, err := e.deviceAtPath(path)
	if err != nil {
		return err
	}

	switch name {
	case "Mtu":
		u, ok := value.AsUint()
		if !ok {
			return fmt.Errorf("attribute Mtu wants a uint, got %s", value.Kind())
		}
		if u == 0 || u > 1<<16 {
			return fmt.Errorf("Mtu %d out of range", u)
		}
		d.mtu = uint32(u)
	case "DataRate":
		s, ok := value.AsString()
		if !ok {
			return fmt.Errorf("attribute DataRate wants a string, got %s", value.Kind())
		}
		rate, err := parseDataRate(s)
		if err != nil {
			return err
		}
		d.ch.rateBps = rate
	case "Delay":
		s, ok := value.AsString()
		if !ok {
			return fmt.Errorf("attribute Delay wants a string, got %s", value.Kind())
		}
		del, err := parseDelay(s)
		if err != nil {
			return err
		}
		d.ch.delaySec = del
	default:
		return fmt.Errorf("unknown attribute %q", name)
	}

	e.attrs[path+"/"+name] = value
	return nil
}

// Attribute returns a previously applied attribute value.
func (e *Engine) Attribute(path, name string) (attr.Value, bool) {
	v, ok := e.attrs[path+"/"+name]
	return v, ok
}

// deviceAtPath resolves "/NodeList/<i>/DeviceList/<j>" to the jth device of
// the ith created node.
func (e *Engine) deviceAtPath(path string) (*device, error) {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, "$") {
			continue
		}
		parts = append(parts, seg)
	}
	if len(parts) != 4 || parts[0] != "NodeList" || parts[2] != "DeviceList" {
		return nil, fmt.Errorf("unsupported attribute path %q", path)
	}
	ni, err := strconv.Atoi(parts[1])
	if err != nil || ni < 0 || ni >= len(e.nodeRefs) {
		return nil, fmt.Errorf("no node at index %s", parts[1])
	}
	n := e.nodes[e.nodeRefs[ni]]
	di, err := strconv.Atoi(parts[3])
	if err != nil || di < 0 || di >= len(n.devices) {
		return nil, fmt.Errorf("no device at index %s on node %d", parts[3], ni)
	}
	return n.devices[di], nil
}
