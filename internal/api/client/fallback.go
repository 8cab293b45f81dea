package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

const instrumentationName = "github.com/donaldgifford/storefront-proxy/internal/api/client"

// Source tells which path produced a search result.
type Source string

// Result sources.
const (
	SourceServer Source = "server"
	SourceClient Source = "client"
)

// Result is a search result tagged with its source. Both paths share the
// normalized schema.
type Result struct {
	domain.SearchResult
	Source Source
}

// Cause classifies a terminal search failure for display.
type Cause string

// Failure causes.
const (
	CauseBlocked  Cause = "blocked"
	CauseNetwork  Cause = "network"
	CauseUpstream Cause = "upstream"
	CauseUnknown  Cause = "unknown"
)

var messages = map[Cause]map[string]string{
	CauseBlocked: {
		"pt-BR": "Busca temporariamente indisponível nesta rede. Tente novamente mais tarde.",
		"en":    "Search is temporarily unavailable on this network. Please try again later.",
	},
	CauseNetwork: {
		"pt-BR": "Não foi possível conectar ao serviço de busca. Verifique sua conexão.",
		"en":    "Could not reach the search service. Check your connection.",
	},
	CauseUpstream: {
		"pt-BR": "Não foi possível buscar produtos agora.",
		"en":    "Could not fetch products right now.",
	},
	CauseUnknown: {
		"pt-BR": "Erro inesperado ao buscar produtos.",
		"en":    "Unexpected error while searching for products.",
	},
}

// SearchFailure is the terminal error of a dispatched search.
type SearchFailure struct {
	Cause Cause
	// Status is the last HTTP status seen, 0 for network failures.
	Status int
	Err    error
}

func (f *SearchFailure) Error() string {
	return fmt.Sprintf("search failed (%s): %v", f.Cause, f.Err)
}

func (f *SearchFailure) Unwrap() error {
	return f.Err
}

// Message returns a user-facing message. Languages other than English
// get Brazilian Portuguese.
func (f *SearchFailure) Message(lang string) string {
	key := "pt-BR"
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		key = "en"
	}
	return messages[f.Cause][key]
}

// Primary is the proxy path. *Client implements it.
type Primary interface {
	Search(ctx context.Context, q marketplace.Query) (*domain.SearchResult, error)
}

// Direct is the marketplace path. *marketplace.Proxy implements it.
type Direct interface {
	FetchSearch(ctx context.Context, q marketplace.Query) (*marketplace.Outcome, error)
}

// Dispatcher searches through the proxy and, when the proxy is blocked or
// down, retries exactly once directly against the marketplace.
type Dispatcher struct {
	primary   Primary
	direct    Direct
	log       *slog.Logger
	fallbacks metric.Int64Counter
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDirect enables the fallback path. Without it failures are final.
func WithDirect(d Direct) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.direct = d
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.log = l
	}
}

// NewDispatcher creates a Dispatcher over the proxy client.
func NewDispatcher(primary Primary, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{primary: primary}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logger.Component(d.log, "fallback")

	counter, err := otel.Meter(instrumentationName).Int64Counter("sfp.client.fallbacks",
		metric.WithDescription("Searches retried directly against the marketplace"),
	)
	if err != nil {
		d.log.Warn("creating fallback counter", "error", err)
	}
	d.fallbacks = counter
	return d
}

// Search runs q through the proxy, falling back on a 403, a 5xx or a
// network failure. Cancellation is returned as the context error; other
// terminal failures are a *SearchFailure.
func (d *Dispatcher) Search(ctx context.Context, q marketplace.Query) (*Result, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "client.search")
	defer span.End()
	span.SetAttributes(attribute.String("search.term", q.Term))

	res, err := d.primary.Search(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.String("search.source", string(SourceServer)))
		return &Result{SearchResult: *res, Source: SourceServer}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if d.direct == nil || !shouldFallback(err) {
		return nil, failed(span, err)
	}

	d.log.Info("proxy search failed, calling marketplace directly", "term", q.Term, "error", err)

	out, err := d.direct.FetchSearch(ctx, q)
	if err == nil {
		err = out.Err()
	}
	d.countFallback(ctx, err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failed(span, err)
	}

	span.SetAttributes(attribute.String("search.source", string(SourceClient)))
	return &Result{
		SearchResult: marketplace.NormalizeSearch(out.Body, q),
		Source:       SourceClient,
	}, nil
}

func failed(span trace.Span, err error) *SearchFailure {
	f := newSearchFailure(err)
	span.SetStatus(codes.Error, string(f.Cause))
	return f
}

func (d *Dispatcher) countFallback(ctx context.Context, err error) {
	if d.fallbacks == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	d.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func shouldFallback(err error) bool {
	if errors.Is(err, ErrUnreachable) {
		return true
	}
	status, ok := statusOf(err)
	return ok && (status == http.StatusForbidden || status >= http.StatusInternalServerError)
}

func newSearchFailure(err error) *SearchFailure {
	f := &SearchFailure{Cause: CauseUnknown, Err: err}

	if status, ok := statusOf(err); ok {
		f.Status = status
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			f.Cause = CauseBlocked
		} else {
			f.Cause = CauseUpstream
		}
		return f
	}

	if errors.Is(err, ErrUnreachable) || marketplace.IsTransient(err) {
		f.Cause = CauseNetwork
	}
	return f
}

// statusOf extracts the HTTP status from a proxy or marketplace error.
func statusOf(err error) (int, bool) {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status, true
	}
	return marketplace.StatusOf(err)
}
