package websocket

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// acquireIP reserves one connection slot for ip.
func (h *WebSocketHandler) acquireIP(ip string) bool {
	if h.config.ConnectionsPerIP <= 0 {
		return true
	}

	h.ipMu.Lock()
	defer h.ipMu.Unlock()

	if h.ipConns[ip] >= h.config.ConnectionsPerIP {
		return false
	}
	h.ipConns[ip]++
	return true
}

func (h *WebSocketHandler) releaseIP(ip string) {
	if h.config.ConnectionsPerIP <= 0 {
		return
	}

	h.ipMu.Lock()
	defer h.ipMu.Unlock()

	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
}

// checkOrigin allows native clients without an Origin header and browsers
// from the configured frontends.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}

	// same host is always fine
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}
