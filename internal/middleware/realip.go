package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"
)

// ParseTrustedProxies accepts IPs and CIDR ranges
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// TrustedRealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but
// only when the connection comes from one of the trusted proxies. Other
// requests keep their peer address. With no trusted proxies it does nothing.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	prefixes, err := ParseTrustedProxies(trusted)
	if err != nil {
		log.Error().Err(err).Strs("trusted_proxies", trusted).Msg("Invalid trusted proxies, forwarded headers are ignored")
		prefixes = nil
	}

	isTrusted := func(addr netip.Addr) bool {
		addr = addr.Unmap()
		for _, p := range prefixes {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		if len(prefixes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, err := netip.ParseAddr(clientIP(r))
			if err == nil && isTrusted(peer) {
				if ip, ok := forwardedClient(r, isTrusted); ok {
					r.RemoteAddr = net.JoinHostPort(ip.String(), "0")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient walks X-Forwarded-For from the right and returns the first
// hop that is not a trusted proxy. X-Real-IP is used when there is no chain.
func forwardedClient(r *http.Request, isTrusted func(netip.Addr) bool) (netip.Addr, bool) {
	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(h, ",")...)
	}

	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return netip.Addr{}, false
		}
		if !isTrusted(addr) {
			return addr.Unmap(), true
		}
	}

	if xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); xRealIP != "" && len(hops) == 0 {
		if addr, err := netip.ParseAddr(xRealIP); err == nil {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
