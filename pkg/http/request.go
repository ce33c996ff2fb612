package http

import (
	"net"
	"net/http"
	"strings"
)

// ProxyTrust decides whether forwarding headers from a peer may be believed.
// CIDR ranges are parsed once at construction; invalid entries are dropped.
type ProxyTrust struct {
	networks []*net.IPNet
}

// NewProxyTrust builds a ProxyTrust from CIDR strings such as "10.0.0.0/8".
// A nil or empty list means no peer is trusted and forwarding headers are
// always ignored.
func NewProxyTrust(cidrs []string) *ProxyTrust {
	trust := &ProxyTrust{}
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		trust.networks = append(trust.networks, ipNet)
	}
	return trust
}

// Trusts reports whether the given address belongs to a trusted proxy range
func (p *ProxyTrust) Trusts(ip string) bool {
	if p == nil || len(p.networks) == 0 {
		return false
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, network := range p.networks {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP extracts the real client address from the request.
// X-Forwarded-For and X-Real-IP are honored only when the direct peer is a
// trusted proxy; otherwise the connection's RemoteAddr wins, which prevents
// clients from spoofing their address via header manipulation.
func ClientIP(r *http.Request, trust *ProxyTrust) string {
	remoteIP := remoteAddr(r)

	if !trust.Trusts(remoteIP) {
		return remoteIP
	}

	// X-Forwarded-For may hold a chain; the first valid entry is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	return remoteIP
}

// BearerToken extracts the credential from an "Authorization: Bearer" header.
// Returns "" when the header is absent or carries a different scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// remoteAddr strips the port from RemoteAddr when present
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
