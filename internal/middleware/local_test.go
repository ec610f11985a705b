package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseNetworks(t *testing.T) {
	nets, err := ParseNetworks(" 100.64.0.0/10, ,fd00::/8")
	if err != nil {
		t.Fatalf("ParseNetworks() error = %v", err)
	}
	if len(nets) != 2 {
		t.Fatalf("got %d networks, want 2", len(nets))
	}

	if nets, err := ParseNetworks(""); err != nil || nets != nil {
		t.Errorf("empty list = %v, %v", nets, err)
	}

	if _, err := ParseNetworks("10.0.0.0/33"); err == nil {
		t.Error("invalid CIDR accepted")
	}
}

func TestIsLocal(t *testing.T) {
	extra, _ := ParseNetworks("100.64.0.0/10")

	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.5.4", true},
		{"192.168.1.20", true},
		{"169.254.10.10", true},
		{"fe80::1", true},
		{"fd12:3456::1", true},
		{"100.100.1.1", true},
		{"8.8.8.8", false},
		{"203.0.113.5", false},
		{"2001:db8::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := IsLocal(net.ParseIP(tt.ip), extra); got != tt.want {
				t.Errorf("IsLocal(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}

	if IsLocal(nil, extra) {
		t.Error("nil IP reported local")
	}
}

func TestLocalOnly(t *testing.T) {
	handler := LocalOnly(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		remote string
		xff    string
		want   int
	}{
		{"loopback", "127.0.0.1:5000", "", http.StatusOK},
		{"lan", "192.168.0.10:5000", "", http.StatusOK},
		{"internet", "203.0.113.5:5000", "", http.StatusForbidden},
		{"spoofed header", "203.0.113.5:5000", "127.0.0.1", http.StatusForbidden},
		{"garbage address", "not-an-ip", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cast/abcd1234", http.NoBody)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
