//go:build !linux

package server

import "net"

// listen opens a TCP listener on addr. The backlog is left to the system.
func listen(addr string, _ int) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
