// ABOUTME: Client identity derivation from the network address
// ABOUTME: Single replaceable function so a cookie or token scheme can slot in later

package identity

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

// Localhost is the reserved identity that loopback and unresolvable
// addresses collapse to. Every browser on the server's own machine shares it.
const Localhost = "localhost"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FromRequest derives the ClientID for an incoming connection.
//
// The identity is deliberately weak: the peer IP, with an X-Forwarded-For
// override when a proxy is in front. It groups conversations per machine and
// splits them across NAT changes. Replace this one function to move to a
// stronger identity without touching the rest of the server.
func FromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return FromAddr(first)
		}
	}
	return FromAddr(r.RemoteAddr)
}

// FromAddr derives the ClientID from an address string such as
// "203.0.113.7:52114", "[::1]:8080" or a bare IP.
func FromAddr(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}

	// Strip an IPv6 zone (fe80::1%eth0)
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}

	if host == "" {
		return Localhost
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsUnspecified() {
			return Localhost
		}
	} else if host == "localhost" {
		return Localhost
	}

	return Sanitize(host)
}

// Sanitize maps an identity to a filename-safe atom: every character outside
// [A-Za-z0-9] becomes an underscore, so any identity is a safe filename.
func Sanitize(id string) string {
	if id == "" {
		return Localhost
	}
	return unsafeChars.ReplaceAllString(id, "_")
}
