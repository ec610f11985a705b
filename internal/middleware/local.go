package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"media-share/internal/logging"
)

// ParseNetworks parses a comma separated CIDR list. Blank entries are
// ignored.
func ParseNetworks(list string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", entry, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// IsLocal reports whether ip is a loopback, private or link-local address,
// or falls inside one of extra.
func IsLocal(ip net.IP, extra []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return true
	}
	for _, n := range extra {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// LocalOnly refuses requests from outside the local network with 403.
func LocalOnly(extra []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := RemoteIP(r)
			if !IsLocal(ip, extra) {
				logging.Warn("Refused local-only request to %s from %s", sanitizeLogField(r.URL.Path), r.RemoteAddr)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
