package utils

import "net"

// IsPrivateHost reports whether a bind host is loopback or private, meaning
// an unauthenticated listener on it is not reachable from outside the
// machine or LAN.
func IsPrivateHost(host string) bool {
	if host == "" {
		// An empty host binds every interface.
		return false
	}
	if host == "localhost" {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return isPrivateIP(ip)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return false
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return true
		}
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsUnspecified() {
		// 0.0.0.0 and :: cover every interface, public ones included.
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
