package http

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/freekieb7/poolhttp/test"
)

func textHandler(body string) Handler {
	return func(req *Request, res *Response) {
		res.WithText(body)
	}
}

func TestRouterExactMatch(t *testing.T) {
	router := NewRouter()
	router.GET("/", textHandler("index"))
	router.GET("/something", textHandler("get"))
	router.POST("/something", textHandler("post"))
	handler := router.Handler()

	testCases := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{"GET", "/", StatusOK, "index"},
		{"GET", "/something", StatusOK, "get"},
		{"POST", "/something", StatusOK, "post"},
		{"POST", "/", StatusNotFound, "Not Found"},
		{"PUT", "/something", StatusNotFound, "Not Found"},
		{"get", "/", StatusNotFound, "Not Found"},
		{"GET", "/something/", StatusNotFound, "Not Found"},
		{"GET", "", StatusNotFound, "Not Found"},
		{"", "", StatusNotFound, "Not Found"},
	}

	for _, tc := range testCases {
		req := Request{RawMethod: tc.method, Method: ParseMethod(tc.method), Path: tc.path}
		res := Response{}
		handler(&req, &res)

		if res.Status == 0 {
			res.Status = StatusOK
		}
		if res.Status != tc.status || string(res.Body) != tc.body {
			t.Errorf("%s %q: got %d %q, want %d %q", tc.method, tc.path, res.Status, res.Body, tc.status, tc.body)
		}
	}
}

func TestRouterReplacesRoute(t *testing.T) {
	router := NewRouter()
	router.GET("/", textHandler("first"))
	router.GET("/", textHandler("second"))

	var res Response
	router.Lookup("GET", "/")(&Request{}, &res)
	test.AssertEqual(t, "second", string(res.Body))
}

func TestRouterMiddlewareOrder(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(req *Request, res *Response) {
				calls = append(calls, name)
				next(req, res)
			}
		}
	}

	router := NewRouter()
	router.Use(tag("global"))
	router.GET("/", textHandler("ok"), tag("route"))

	var res Response
	router.Handler()(&Request{RawMethod: "GET", Path: "/"}, &res)
	test.AssertEqual(t, []string{"global", "route"}, calls)
}

func TestRecoverMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	panicking := RecoverMiddleware(logger)(func(req *Request, res *Response) {
		res.WithText("partial")
		panic("boom")
	})

	var res Response
	panicking(&Request{RawMethod: "GET", Path: "/boom"}, &res)

	test.AssertEqual(t, StatusInternalServerError, res.Status)
	test.AssertEqual(t, "Internal Server Error", string(res.Body))
	if !bytes.Contains(logs.Bytes(), []byte("handler panic")) {
		t.Errorf("expected panic to be logged, got %q", logs.String())
	}
}
