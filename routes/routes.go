// Package routes holds the handlers served on port 3004.
package routes

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"github.com/freekieb7/poolhttp/http"
)

const Greeting = "Hello from Go!"

type queryResult struct {
	Route string            `json:"route"`
	Query map[string]string `json:"query"`
}

// Register adds every route to router, each wrapped in RecoverMiddleware.
func Register(router *http.Router, logger *slog.Logger) {
	recoverer := http.RecoverMiddleware(logger)

	router.GET("/", Index, recoverer)
	router.GET("/something", GetSomething, recoverer)
	router.POST("/something", PostSomething, recoverer)
}

// NewHandler returns the full dispatcher.
func NewHandler(logger *slog.Logger) http.Handler {
	router := http.NewRouter()
	Register(router, logger)
	return router.Handler()
}

func Index(req *http.Request, res *http.Response) {
	res.WithStatus(http.StatusOK).WithText(Greeting)
}

// GetSomething echoes the query parameters, as JSON when json=true and as text
// otherwise. Keys are listed in sorted order.
func GetSomething(req *http.Request, res *http.Response) {
	query := ParseQuery(req.Query)
	res.WithStatus(http.StatusOK)

	if query["json"] == "true" {
		res.WithJson(queryResult{Route: req.Path, Query: query})
		return
	}

	var b strings.Builder
	b.WriteString("Route: ")
	b.WriteString(req.Path)
	b.WriteString(", Query: {")
	for i, k := range sortedKeys(query) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(query[k])
	}
	b.WriteString("}")
	res.WithText(b.String())
}

// PostSomething embeds the request body under "body" without validating it,
// so a malformed body produces malformed output.
func PostSomething(req *http.Request, res *http.Response) {
	route, _ := json.Marshal(req.Path)

	var b bytes.Buffer
	b.Grow(len(route) + len(req.Body) + 24)
	b.WriteString(`{"route":`)
	b.Write(route)
	b.WriteString(`,"body":`)
	if len(req.Body) == 0 {
		b.WriteString("{}")
	} else {
		b.Write(req.Body)
	}
	b.WriteString("}")

	res.WithStatus(http.StatusOK).WithJson(b.Bytes())
}
