// Package attrs holds helpers for structured log attributes.
package attrs

import (
	"net/netip"
	"strings"
)

// AnonymizeIP keeps the network part of an address for logs and audit meta:
// /24 for IPv4, /48 for IPv6. Unparseable input is returned as "unknown".
func AnonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "unknown"
	}
	bits := 24
	if addr.Is6() && !addr.Is4In6() {
		bits = 48
	}
	prefix, err := addr.Unmap().Prefix(bits)
	if err != nil {
		return "unknown"
	}
	return prefix.String()
}
