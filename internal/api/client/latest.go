package client

import (
	"context"
	"errors"
	"sync"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
)

// ErrSuperseded is returned by Latest when a newer search replaced the
// call before it finished.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Searcher runs dispatched searches. *Dispatcher implements it.
type Searcher interface {
	Search(ctx context.Context, q marketplace.Query) (*Result, error)
}

// Latest keeps only the most recent search alive: starting a search
// cancels the one in flight, as typing in a search box would.
type Latest struct {
	searcher Searcher

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// NewLatest wraps s.
func NewLatest(s Searcher) *Latest {
	return &Latest{searcher: s}
}

// Reply is the outcome of a search started with Start.
type Reply struct {
	Result *Result
	Err    error
}

// Search cancels any in-flight search and runs q. A call superseded by a
// newer one returns ErrSuperseded, even if its result arrived.
func (l *Latest) Search(ctx context.Context, q marketplace.Query) (*Result, error) {
	ctx, finish := l.begin(ctx)
	return finish(l.searcher.Search(ctx, q))
}

// Start supersedes any in-flight search before returning, then runs q in
// the background. The channel receives exactly one Reply.
func (l *Latest) Start(ctx context.Context, q marketplace.Query) <-chan Reply {
	ctx, finish := l.begin(ctx)
	ch := make(chan Reply, 1)
	go func() {
		res, err := finish(l.searcher.Search(ctx, q))
		ch <- Reply{Result: res, Err: err}
	}()
	return ch
}

func (l *Latest) begin(ctx context.Context) (context.Context, func(*Result, error) (*Result, error)) {
	ctx, cancel := context.WithCancelCause(ctx)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel(ErrSuperseded)
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	return ctx, func(res *Result, err error) (*Result, error) {
		l.mu.Lock()
		if l.seq == seq {
			l.cancel = nil
		}
		l.mu.Unlock()

		superseded := errors.Is(context.Cause(ctx), ErrSuperseded)
		cancel(nil)
		if superseded {
			return nil, ErrSuperseded
		}
		return res, err
	}
}
