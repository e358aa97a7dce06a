package httpclient

import (
	"context"
	"maps"
)

type headersKey struct{}

// WithHeader returns a context carrying an extra header that Send attaches to
// outgoing requests. Later values for the same key replace earlier ones.
func WithHeader(ctx context.Context, key, value string) context.Context {
	headers := maps.Clone(headersFromContext(ctx))
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers[key] = value
	return context.WithValue(ctx, headersKey{}, headers)
}

func headersFromContext(ctx context.Context) map[string]string {
	if h, ok := ctx.Value(headersKey{}).(map[string]string); ok {
		return h
	}
	return nil
}
