// Package slipway carries module-level metadata shared by the CLI and the
// self-update check.
package slipway

// VERSION is the release version, injected at build time with
// -ldflags "-X github.com/slipwaylabs/slipway.VERSION=v1.2.3".
var VERSION = "n/a"
