package http

type Route struct {
	Method  string
	Path    string
	Handler Handler
}

var NotFoundHandler Handler = func(req *Request, res *Response) {
	res.WithStatus(StatusNotFound).WithText(StatusText(StatusNotFound))
}
