// Package http is a small HTTP/1.1 server that answers exactly one request per
// connection. Accepted connections are queued to a fixed pool of workers, so a
// slow client never holds up the accept loop.
package http

// Handler fills res for req. Handlers see a fully read request and never touch
// the connection.
type Handler func(req *Request, res *Response)
