package http

import (
	"log/slog"
	"runtime/debug"
)

type Middleware func(next Handler) Handler

// RecoverMiddleware turns a handler panic into a 500 response.
func RecoverMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next Handler) Handler {
		return func(req *Request, res *Response) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("handler panic",
						"method", req.RawMethod,
						"path", req.Path,
						"panic", recovered,
						"stack", string(debug.Stack()),
					)

					*res = Response{}
					res.WithStatus(StatusInternalServerError).WithText(StatusText(StatusInternalServerError))
				}
			}()

			next(req, res)
		}
	}
}
