package http

import (
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

const (
	ContentTypeText = "text/plain"
	ContentTypeJson = "application/json"
)

var (
	protocolHttp11      = []byte("HTTP/1.1 ")
	contentTypePrefix   = []byte("Content-Type: ")
	contentLengthPrefix = []byte("Content-Length: ")
	connectionClose     = []byte("Connection: close\r\n")
	crlf                = []byte("\r\n")
)

// Response describes what is sent back for a request. The connection is always
// closed afterwards, so there are no keep-alive or transfer-encoding variants.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

func (res *Response) WithStatus(status int) *Response {
	res.Status = status
	return res
}

func (res *Response) WithText(payload string) *Response {
	res.ContentType = ContentTypeText
	res.Body = []byte(payload)
	return res
}

// WithJson sets a JSON body. Strings and byte slices are taken to be encoded
// already and are used verbatim.
func (res *Response) WithJson(payload any) *Response {
	res.ContentType = ContentTypeJson

	switch v := payload.(type) {
	case string:
		res.Body = []byte(v)
	case []byte:
		res.Body = v
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			res.Status = StatusInternalServerError
			res.ContentType = ContentTypeText
			res.Body = []byte(StatusText(StatusInternalServerError))
			return res
		}
		res.Body = b
	}

	return res
}

// AppendWire appends the serialized response to buf. Content-Length is always
// the exact length of Body.
func (res *Response) AppendWire(buf []byte) []byte {
	status := res.Status
	if status == 0 {
		status = StatusOK
	}
	contentType := res.ContentType
	if contentType == "" {
		contentType = ContentTypeText
	}

	buf = append(buf, protocolHttp11...)
	buf = strconv.AppendInt(buf, int64(status), 10)
	buf = append(buf, ' ')
	buf = append(buf, StatusText(status)...)
	buf = append(buf, crlf...)

	buf = append(buf, contentTypePrefix...)
	buf = append(buf, contentType...)
	buf = append(buf, crlf...)

	buf = append(buf, contentLengthPrefix...)
	buf = strconv.AppendInt(buf, int64(len(res.Body)), 10)
	buf = append(buf, crlf...)

	buf = append(buf, connectionClose...)
	buf = append(buf, crlf...)

	return append(buf, res.Body...)
}

// Write sends the whole response to w.
func (res *Response) Write(w io.Writer) error {
	wire := res.AppendWire(make([]byte, 0, 128+len(res.Body)))
	return SendAll(w, wire)
}
