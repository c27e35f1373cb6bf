//go:build linux

package http

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func listenControl(deferAccept time.Duration) func(network, address string, c syscall.RawConn) error {
	secs := int(deferAccept / time.Second)
	if secs <= 0 {
		return nil
	}

	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, secs)
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
