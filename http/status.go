// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package http

const (
	StatusOK = 200 // RFC 7231, 6.3.1

	StatusBadRequest = 400 // RFC 7231, 6.5.1
	StatusNotFound   = 404 // RFC 7231, 6.5.4

	StatusInternalServerError = 500 // RFC 7231, 6.6.1
)

const unknownStatusCode = "Unknown Status Code"

var statusMessages = map[int]string{
	StatusOK: "OK",

	StatusBadRequest: "Bad Request",
	StatusNotFound:   "Not Found",

	StatusInternalServerError: "Internal Server Error",
}

// StatusText returns the reason phrase for code.
func StatusText(code int) string {
	if msg, found := statusMessages[code]; found {
		return msg
	}
	return unknownStatusCode
}
