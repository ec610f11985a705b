package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RemoteIP returns the address of the connected peer. Forwarding headers
// are ignored: anything that grants or limits access keys on this.
func RemoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(strings.Trim(host, "[]"))
}

// displayIP returns the client address as reported by a proxy when one is
// present. Only used for logging.
func displayIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if ip := RemoteIP(r); ip != nil {
		return ip.String()
	}
	return r.RemoteAddr
}
