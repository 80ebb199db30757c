package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIdentity resolves the identity a request is limited under.
// Proxy headers win over the socket address: the first entry of
// X-Forwarded-For, then X-Real-IP, then the peer host. Requests with
// no resolvable address share the "unknown" identity.
func ClientIdentity(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
