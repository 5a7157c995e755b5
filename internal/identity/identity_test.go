// ABOUTME: Tests for client identity derivation
// ABOUTME: Covers IPv4/IPv6 parsing, forwarded headers, and loopback collapse

package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromAddr(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"ipv4 with port", "203.0.113.7:52114", "203_0_113_7"},
		{"ipv4 bare", "203.0.113.7", "203_0_113_7"},
		{"ipv6 with port", "[2001:db8::1]:443", "2001_db8__1"},
		{"ipv6 bare", "2001:db8::1", "2001_db8__1"},
		{"ipv6 zone", "[fe80::1%eth0]:9000", "fe80__1"},
		{"loopback ipv4", "127.0.0.1:3000", Localhost},
		{"loopback ipv6", "[::1]:3000", Localhost},
		{"unspecified", "0.0.0.0:3000", Localhost},
		{"hostname localhost", "localhost:3000", Localhost},
		{"empty", "", Localhost},
		{"non-ip host", "proxy.internal:80", "proxy_internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromAddr(tt.addr))
		})
	}
}

func TestFromRequest_ForwardedForWins(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2")

	assert.Equal(t, "198_51_100_9", FromRequest(r))
}

func TestFromRequest_FallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "198.51.100.9:1234"

	assert.Equal(t, "198_51_100_9", FromRequest(r))
}

func TestFromRequest_EmptyForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "198.51.100.9:1234"
	r.Header.Set("X-Forwarded-For", " ")

	assert.Equal(t, "198_51_100_9", FromRequest(r))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a_b_c", Sanitize("a.b/c"))
	assert.Equal(t, "abc123", Sanitize("abc123"))
	assert.Equal(t, Localhost, Sanitize(""))
	assert.Equal(t, "___", Sanitize("../"))
}

func TestFromAddr_SafeForFilenames(t *testing.T) {
	// No derived identity may escape the storage directory.
	for _, addr := range []string{"[2001:db8::1]:1", "a/../b:2", "..:3"} {
		id := FromAddr(addr)
		assert.Regexp(t, `^[A-Za-z0-9_]+$`, id, "addr %q", addr)
	}
}
