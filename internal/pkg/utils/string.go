package utils

import (
	"crypto/rand"
	"encoding/binary"
	"unicode/utf8"
)

const alphanum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandStr returns a cryptographically random alphanumeric string of length
// n, suitable for auth tokens.
func RandStr(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = alphanum[randIndex(len(alphanum))]
	}
	return string(out)
}

// randIndex draws a uniform-ish index below n from crypto/rand. The 64-bit
// draw keeps the modulo bias far below anything observable.
func randIndex(n int) int {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return int(binary.BigEndian.Uint64(buf[:]) % uint64(n))
}

// Truncate clamps s to at most max bytes plus an ellipsis marker. The cut
// backs up to a rune boundary so multibyte characters are never split.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Truncate80 is Truncate at one log line's worth of text.
func Truncate80(s string) string {
	return Truncate(s, 80)
}
