package utils

import "testing"

func TestIsPrivateHost(t *testing.T) {
	cases := map[string]bool{
		"localhost":     true,
		"127.0.0.1":     true,
		"::1":           true,
		"10.0.0.8":      true,
		"192.168.1.5":   true,
		"172.16.0.1":    true,
		"169.254.10.10": true, // link-local
		"8.8.8.8":       false,
		"93.184.216.34": false,
		// Unspecified addresses bind every interface, public ones included.
		"0.0.0.0": false,
		"::":      false,
		"":        false,
	}
	for host, want := range cases {
		if got := IsPrivateHost(host); got != want {
			t.Errorf("IsPrivateHost(%q) = %v, want %v", host, got, want)
		}
	}
}
