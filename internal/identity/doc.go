// Package identity derives a stable client identity from an HTTP request.
// The identity is the client's IP address (X-Forwarded-For wins when a
// proxy sets it), with every loopback and unknown address collapsing to
// "localhost", sanitized so it can double as a storage filename.
package identity
