package simcore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// rateUnits in ascending specificity: longer suffixes checked first so
// "Mbps" is not mistaken for "bps".
var rateUnits = []struct {
	suffix string
	mult   uint64
}{
	{"Gbps", 1_000_000_000},
	{"Mbps", 1_000_000},
	{"Kbps", 1_000},
	{"kbps", 1_000},
	{"bps", 1},
}

// parseDataRate converts a rate string such as "5Mbps" or "1Gbps" into bits
// per second.
func parseDataRate(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty data rate")
	}
	for _, u := range rateUnits {
		if strings.HasSuffix(s, u.suffix) {
			num := strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			v, err := strconv.ParseFloat(num, 64)
			if err != nil || v <= 0 {
				return 0, fmt.Errorf("bad data rate %q", s)
			}
			return uint64(v * float64(u.mult)), nil
		}
	}
	return 0, fmt.Errorf("bad data rate %q: unknown unit", s)
}

// parseDelay converts a delay string such as "2ms", "10us" or "6560ns" into
// seconds.
func parseDelay(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty delay")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("bad delay %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("bad delay %q: negative", s)
	}
	return d.Seconds(), nil
}
