package http

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

var _ propagation.TextMapCarrier = headerCarrier(nil)

// headerCarrier lets a propagator read trace context from parsed request headers.
type headerCarrier Headers

func (c headerCarrier) Get(key string) string {
	return c[strings.ToLower(key)]
}

func (c headerCarrier) Set(key, value string) {
	c[strings.ToLower(key)] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
