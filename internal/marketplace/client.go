package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

// Endpoint labels for metrics and spans.
const (
	EndpointSearch = "search"
	EndpointItem   = "item"
)

const (
	defaultUserAgent      = "Mozilla/5.0 (compatible; StorefrontProxy/1.0)"
	defaultAcceptLanguage = "pt-BR,pt;q=0.9,en;q=0.8"
	maxBodyBytes          = 4 << 20

	tracerName = "github.com/donaldgifford/storefront-proxy/internal/marketplace"
)

// Client performs single GET attempts against the marketplace and
// classifies the response. It never retries.
type Client struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	quota          *Quota
	tracer         trace.Tracer
	log            *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithUserAgent overrides the User-Agent sent with every call.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithAcceptLanguage overrides the Accept-Language sent with every call.
func WithAcceptLanguage(al string) ClientOption {
	return func(c *Client) {
		if al != "" {
			c.acceptLanguage = al
		}
	}
}

// WithQuota makes every attempt wait on q first.
func WithQuota(q *Quota) ClientOption {
	return func(c *Client) {
		c.quota = q
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a marketplace client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		client:         &http.Client{Timeout: 10 * time.Second},
		userAgent:      defaultUserAgent,
		acceptLanguage: defaultAcceptLanguage,
		tracer:         otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.Component(c.log, "marketplace")
	return c
}

// Get issues one GET to rawURL, attaching token as a bearer credential
// when non-empty. Any HTTP response yields an Outcome; only transport
// failures (wrapping ErrUnavailable) and quota exhaustion return an error.
func (c *Client) Get(ctx context.Context, endpoint, rawURL, token string) (*Outcome, error) {
	if c.quota != nil {
		if err := c.quota.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	auth := "anonymous"
	if token != "" {
		auth = "bearer"
	}

	ctx, span := c.tracer.Start(ctx, "marketplace."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("marketplace.endpoint", endpoint),
			attribute.String("marketplace.auth", auth),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.acceptLanguage)
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, auth, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s request: %w", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: reading %s response: %w", ErrUnavailable, endpoint, err)
	}

	out := &Outcome{
		Kind:     classify(resp.StatusCode),
		Status:   resp.StatusCode,
		Body:     body,
		Attempts: 1,
	}
	if out.Kind != OutcomeSuccess {
		out.Data = decodeBody(resp.Header.Get("Content-Type"), body)
		span.SetStatus(codes.Error, out.Kind.String())
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, auth, out.Kind.String()).Inc()
	c.log.Debug("marketplace call",
		"endpoint", endpoint,
		"auth", auth,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return out, nil
}

// decodeBody returns the JSON value of body when contentType declares
// JSON and body parses, otherwise the body as text.
func decodeBody(contentType string, body []byte) any {
	if isJSON(contentType) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
