package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	DefaultReadBufferSize = 8191    // single initial read
	DefaultMaxBodySize    = 1 << 20 // 1MiB
)

var (
	ErrNoRequest  = errors.New("http: connection closed before a request was received")
	ErrBadRequest = errors.New("http: bad request")
)

var (
	headerTerminator   = []byte("\r\n\r\n")
	headerTerminatorLF = []byte("\n\n")
)

type Method uint8

const (
	MethodOther Method = iota
	MethodGet
	MethodPost
)

func ParseMethod(s string) Method {
	switch s {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	}
	return MethodOther
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	}
	return "OTHER"
}

// Headers maps lowercased header names to their last received value.
type Headers map[string]string

func (h Headers) Get(name string) (string, bool) {
	v, found := h[strings.ToLower(name)]
	return v, found
}

type ReadLimits struct {
	BufferSize  int
	MaxBodySize int
}

func DefaultReadLimits() ReadLimits {
	return ReadLimits{
		BufferSize:  DefaultReadBufferSize,
		MaxBodySize: DefaultMaxBodySize,
	}
}

type Request struct {
	Method    Method
	RawMethod string
	Path      string
	Query     string
	Protocol  string
	Headers   Headers

	// ContentLength is the declared body length after clamping to the body cap.
	ContentLength int
	Body          []byte
}

// Read parses one request from r. The head must arrive in a single read of at
// most limits.BufferSize bytes; a POST body is completed with exact reads.
func (req *Request) Read(r io.Reader, limits ReadLimits) error {
	if limits.BufferSize <= 0 {
		limits.BufferSize = DefaultReadBufferSize
	}
	if limits.MaxBodySize <= 0 {
		limits.MaxBodySize = DefaultMaxBodySize
	}

	buf := make([]byte, limits.BufferSize)
	n, err := r.Read(buf)
	if n <= 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		return fmt.Errorf("%w: %w", ErrNoRequest, err)
	}
	data := buf[:n]

	head, bodyStart := splitHead(data)
	req.parseHead(head, limits.MaxBodySize)

	if req.Method != MethodPost || req.ContentLength == 0 {
		return nil
	}

	body, err := readBody(r, data, bodyStart, req.ContentLength)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrBadRequest, err)
	}
	req.Body = body

	return nil
}

// splitHead returns the head section and the offset where the body begins, or
// -1 when no blank line was found in data.
func splitHead(data []byte) ([]byte, int) {
	if i := bytes.Index(data, headerTerminator); i >= 0 {
		return data[:i], i + len(headerTerminator)
	}
	if i := bytes.Index(data, headerTerminatorLF); i >= 0 {
		return data[:i], i + len(headerTerminatorLF)
	}
	return data, -1
}

func (req *Request) parseHead(head []byte, maxBodySize int) {
	lines := strings.Split(string(head), "\n")

	parts := strings.Fields(lines[0])
	if len(parts) > 0 {
		req.RawMethod = parts[0]
	}
	if len(parts) > 1 {
		target := parts[1]
		if i := strings.IndexByte(target, '?'); i >= 0 {
			req.Path, req.Query = target[:i], target[i+1:]
		} else {
			req.Path = target
		}
	}
	if len(parts) > 2 {
		req.Protocol = parts[2]
	}
	req.Method = ParseMethod(req.RawMethod)

	req.Headers = make(Headers, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			break // end of headers
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		req.Headers[key] = strings.TrimSpace(line[i+1:])
	}

	if v, found := req.Headers["content-length"]; found {
		req.ContentLength = parseContentLength(v, maxBodySize)
	}
}

// parseContentLength clamps anything unparseable or outside [0, max] to zero.
func parseContentLength(v string, max int) int {
	n, err := atoi([]byte(v), max)
	if err != nil {
		return 0
	}
	return n
}

func readBody(r io.Reader, data []byte, bodyStart, length int) ([]byte, error) {
	if bodyStart < 0 {
		// the head never fit in the initial read, so none of the body is buffered
		return ReadExact(r, length)
	}

	buffered := data[bodyStart:]
	if len(buffered) >= length {
		return buffered[:length:length], nil
	}

	rest, err := ReadExact(r, length-len(buffered))
	if err != nil {
		return nil, err
	}

	body := make([]byte, 0, length)
	body = append(body, buffered...)
	return append(body, rest...), nil
}
