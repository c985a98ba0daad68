// file: internal/search/network.go
// version: 1.0.0
// guid: 1b2c3d4e-5f60-4a7b-8c9d-0e1f2a3b4c5d

package search

import (
	"context"
	"net"
	"time"
)

// NetworkChecker reports whether the network is usable.
type NetworkChecker func(ctx context.Context) bool

// AlwaysOnline is a NetworkChecker that never blocks a search.
func AlwaysOnline(context.Context) bool { return true }

// DialChecker returns a NetworkChecker that tries a TCP connection to
// address (host:port).
func DialChecker(address string, timeout time.Duration) NetworkChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}
