// Package correlation carries the id that ties together every log line, span
// and audit entry produced for one inbound request.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// HeaderName is read from requests and echoed on responses.
const HeaderName = "X-Correlation-Id"

type idKey struct{}

// ID returns the correlation id on ctx, or "".
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(idKey{}).(string)
	return id
}

// WithID stores id on ctx. Blank ids are ignored.
func WithID(ctx context.Context, id string) context.Context {
	if id = strings.TrimSpace(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, idKey{}, id)
}

// Ensure keeps an existing id and otherwise mints a ULID, so ids sort by the
// time the request arrived.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := ID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return context.WithValue(ctx, idKey{}, id), id
}
