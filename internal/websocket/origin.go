package websocket

import (
	"net"
	"net/url"
	"strings"
)

// OriginValidator decides whether a browser origin may open a connection.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// AllowedOrigins accepts loopback origins plus the listed ones. Entries are
// full origins ("https://library.example.org") or bare hosts with an
// optional port ("library.example.org:8443").
type AllowedOrigins []string

// IsAllowedOrigin implements OriginValidator.
func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if isLoopback(u.Hostname()) {
		return true
	}

	for _, allowed := range a {
		allowed = strings.TrimSpace(strings.TrimSuffix(allowed, "/"))
		if allowed == "" {
			continue
		}
		if strings.Contains(allowed, "://") {
			if strings.EqualFold(allowed, u.Scheme+"://"+u.Host) {
				return true
			}
			continue
		}
		if strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
