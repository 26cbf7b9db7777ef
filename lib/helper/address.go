package helper

import (
	"net"
	"strings"
)

// SubnetKey returns the /24-equivalent grouping key for an IPv4 address,
// e.g. "10.1.2.0/24" for "10.1.2.15". Non-IPv4 input yields "".
func SubnetKey(address string) string {
	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		return ""
	}
	v4 := ip.To4()
	if v4 == nil {
		return ""
	}
	masked := v4.Mask(net.CIDRMask(24, 32))
	return masked.String() + "/24"
}

// rfc1918Blocks are the private IPv4 ranges.
var rfc1918Blocks = []*net.IPNet{
	mustCIDR("10.0.0.0/8"),
	mustCIDR("172.16.0.0/12"),
	mustCIDR("192.168.0.0/16"),
}

func mustCIDR(s string) *net.IPNet {
	_, block, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return block
}

// IsPrivateIP reports whether the address falls in an RFC1918 range.
// Unparseable addresses are treated as private so that garbage input never
// inflates exposure scoring.
func IsPrivateIP(address string) bool {
	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return true
	}
	for _, block := range rfc1918Blocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// NormalizeMAC lowercases a MAC address and converts dash or dot separators
// to colons so addresses from different tools compare equal.
func NormalizeMAC(mac string) string {
	m := strings.ToLower(strings.TrimSpace(mac))
	m = strings.ReplaceAll(m, "-", ":")
	if strings.Contains(m, ".") {
		// Cisco dotted form aabb.ccdd.eeff
		digits := strings.ReplaceAll(m, ".", "")
		if len(digits) == 12 {
			parts := make([]string, 0, 6)
			for i := 0; i < 12; i += 2 {
				parts = append(parts, digits[i:i+2])
			}
			return strings.Join(parts, ":")
		}
	}
	return m
}
