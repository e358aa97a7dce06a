// Package commerce is the HTTP client for the remote commerce API that owns
// carts, wishlists and products.
package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "commerce api"

// SessionHeader carries the browser session to the commerce API.
const SessionHeader = "X-Session-ID"

// Sender executes a request with an optional JSON body.
// httpclient.CircuitBreakerClient satisfies this.
type Sender interface {
	Send(ctx context.Context, method, url string, body []byte) (*http.Response, error)
}

// Client talks to the commerce API. Catalog calls are anonymous; cart and
// wishlist calls go through a SessionAPI.
type Client struct {
	baseURL string
	http    Sender
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, sender Sender, l *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    sender,
		logger:  l,
		tracer:  tracing.Tracer("github.com/utafrali/storefront/commerce"),
	}
}

// ForSession binds the client to a browser session.
func (c *Client) ForSession(sessionID string) *SessionAPI {
	return &SessionAPI{client: c, sessionID: sessionID}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type pageEnvelope struct {
	Data       []domain.Product `json:"data"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
}

// ListProducts fetches one catalog page. query is forwarded verbatim.
func (c *Client) ListProducts(ctx context.Context, query url.Values) (*domain.ProductPage, error) {
	path := "/api/v1/products"
	if enc := query.Encode(); enc != "" {
		path += "?" + enc
	}

	var env pageEnvelope
	if err := c.call(ctx, "ListProducts", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}

	products := env.Data
	if products == nil {
		products = []domain.Product{}
	}
	return &domain.ProductPage{
		Products:   products,
		TotalCount: env.TotalCount,
		Page:       env.Page,
		PerPage:    env.PerPage,
		TotalPages: env.TotalPages,
	}, nil
}

// SearchProducts runs a free-text product search.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	path := "/api/v1/search?" + url.Values{"q": {term}}.Encode()

	var env envelope[[]domain.Product]
	if err := c.call(ctx, "SearchProducts", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []domain.Product{}, nil
	}
	return env.Data, nil
}

// call sends one request and decodes the data envelope into out. A nil out
// skips decoding.
func (c *Client) call(ctx context.Context, op, method, path string, payload any, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "commerce."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethod(method),
			attribute.String("commerce.operation", op),
			attribute.String("url.path", path),
		),
	)
	defer func() { tracing.EndSpan(span, err) }()

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
	}

	resp, err := c.http.Send(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(semconv.HTTPStatusCode(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Upstream(fmt.Sprintf("decode %s response", op), err)
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	var srvErr *httpclient.ServerError
	switch {
	case errors.Is(err, httpclient.ErrCircuitOpen), errors.Is(err, httpclient.ErrTooManyRequests):
		logger.WithContext(ctx, c.logger).Warn("commerce api circuit open",
			slog.String("operation", op),
		)
		return apperrors.Unavailable("commerce api is temporarily unavailable")
	case errors.As(err, &srvErr):
		return httpclient.ParseResponseError(srvErr.Response(), serviceName)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return apperrors.Upstream("commerce api unreachable", err)
	}
}
