// Package ports has small helpers for checking TCP port availability
// before the server binds.
package ports

import (
	"context"
	"net"
	"strconv"
)

func GetFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// CheckPort reports whether the port can be bound right now.
func CheckPort(port int) (bool, error) {
	// force IPv4 to detect used ports
	config := &net.ListenConfig{}
	server, err := config.Listen(context.TODO(), "tcp4", ":"+strconv.Itoa(port))
	if err != nil {
		return false, err
	}
	_ = server.Close()
	return true, nil
}
