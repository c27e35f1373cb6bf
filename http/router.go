package http

type routeKey struct {
	method string
	path   string
}

// Router is an exact-match table from method and path to handler.
type Router struct {
	Routes     []Route
	Middleware []Middleware

	table map[routeKey]Handler
}

func NewRouter() *Router {
	return &Router{
		Routes: make([]Route, 0),
		table:  make(map[routeKey]Handler),
	}
}

func (router *Router) GET(path string, handler Handler, middleware ...Middleware) {
	router.Add("GET", path, handler, middleware...)
}

func (router *Router) POST(path string, handler Handler, middleware ...Middleware) {
	router.Add("POST", path, handler, middleware...)
}

// Add registers handler for method and path. A later registration of the same
// pair replaces the earlier one.
func (router *Router) Add(method, path string, handler Handler, middleware ...Middleware) {
	for _, middleware := range middleware {
		handler = middleware(handler)
	}

	route := Route{
		Method:  method,
		Path:    path,
		Handler: handler,
	}
	router.Routes = append(router.Routes, route)
	router.table[routeKey{method, path}] = handler
}

// Use adds middleware that wraps every route, including the not-found fallback.
func (router *Router) Use(middleware ...Middleware) {
	router.Middleware = append(router.Middleware, middleware...)
}

// Lookup returns the handler for method and path, or NotFoundHandler.
func (router *Router) Lookup(method, path string) Handler {
	if handler, found := router.table[routeKey{method, path}]; found {
		return handler
	}
	return NotFoundHandler
}

func (router *Router) Handler() Handler {
	var handler Handler = func(req *Request, res *Response) {
		router.Lookup(req.RawMethod, req.Path)(req, res)
	}
	for _, middleware := range router.Middleware {
		handler = middleware(handler)
	}
	return handler
}
