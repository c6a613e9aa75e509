package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// NewCheckOrigin returns an origin check for viewer connections. It allows empty
// origins (same-origin and non-browser clients) and any origin on the CORS allow
// list. When isDevelopment is true, localhost origins are additionally allowed.
func NewCheckOrigin(allowedOrigins []string, isDevelopment bool) func(r *http.Request) bool {
	allowed := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if normalized := extractOrigin(strings.TrimSpace(o)); normalized != "" {
			allowed = append(allowed, normalized)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" {
			return true
		}

		if slices.Contains(allowed, origin) {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
