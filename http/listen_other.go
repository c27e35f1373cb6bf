//go:build !linux

package http

import (
	"syscall"
	"time"
)

func listenControl(time.Duration) func(network, address string, c syscall.RawConn) error {
	return nil
}
