package http

import (
	"context"
	"net"
	"time"
)

// Listen opens a TCP listener on addr. On linux a positive deferAccept keeps
// connections in the kernel until the client has sent data or the period
// expires.
func Listen(ctx context.Context, addr string, deferAccept time.Duration) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: listenControl(deferAccept),
	}
	return lc.Listen(ctx, "tcp", addr)
}
