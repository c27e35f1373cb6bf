package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

var (
	ErrShortRead  = errors.New("http: stream ended before all bytes were read")
	ErrShortWrite = errors.New("http: stream failed before all bytes were sent")
)

// ReadExact reads exactly count bytes from r. Partial reads are retried; a read
// that makes no progress, or any error before count is reached, fails the whole
// call and no partial data is returned.
func ReadExact(r io.Reader, count int) ([]byte, error) {
	if count <= 0 {
		return []byte{}, nil
	}

	buf := make([]byte, count)
	total := 0
	for total < count {
		n, err := r.Read(buf[total:])
		total += n
		if total >= count {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: got %d of %d bytes: %w", ErrShortRead, total, count, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%w: got %d of %d bytes: %w", ErrShortRead, total, count, io.ErrNoProgress)
		}
	}

	return buf, nil
}

// SendAll writes every byte of b to w, retrying partial writes.
func SendAll(w io.Writer, b []byte) error {
	total := 0
	for total < len(b) {
		n, err := w.Write(b[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			return fmt.Errorf("%w: sent %d of %d bytes: %w", ErrShortWrite, total, len(b), err)
		}
		if n <= 0 {
			return fmt.Errorf("%w: sent %d of %d bytes: %w", ErrShortWrite, total, len(b), io.ErrShortWrite)
		}
	}

	return nil
}

// timeoutConn refreshes the deadline before every Read and Write, so each call
// gets its own timeout rather than the exchange sharing one.
type timeoutConn struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newTimeoutConn(conn net.Conn, readTimeout, writeTimeout time.Duration) *timeoutConn {
	return &timeoutConn{
		Conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (c *timeoutConn) Read(b []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *timeoutConn) Write(b []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}
