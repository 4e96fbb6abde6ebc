// Package rpc holds the failover machinery shared by the chain engines: an
// ordered set of lazily dialled endpoints, transient-error classification and
// bounded polling.
package rpc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// DefaultCallTimeout bounds a single RPC call when no timeout is configured.
const DefaultCallTimeout = 15 * time.Second

// Dialer creates a client for one endpoint URL.
type Dialer[C any] func(ctx context.Context, url string) (C, error)

// Closer releases a client. Optional.
type Closer[C any] func(C)

type endpoint[C any] struct {
	url    string
	mu     sync.Mutex
	client C
	ready  bool
}

// Endpoints is an ordered set of RPC endpoints for one chain, primary first.
// Clients are dialled on first use and reused afterwards.
type Endpoints[C any] struct {
	chain     string
	endpoints []*endpoint[C]
	dial      Dialer[C]
	close     Closer[C]
	timeout   time.Duration
}

// Option configures Endpoints.
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewEndpoints builds an endpoint set. Blank and duplicate URLs are dropped.
func NewEndpoints[C any](chain string, urls []string, dial Dialer[C], closer Closer[C], opts ...Option) (*Endpoints[C], error) {
	o := options{timeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	seen := make(map[string]struct{}, len(urls))
	eps := make([]*endpoint[C], 0, len(urls))
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		eps = append(eps, &endpoint[C]{url: url})
	}

	if len(eps) == 0 {
		return nil, errs.Validation(errs.CodeInvalidInput, "at least one RPC URL is required for %s", chain)
	}
	if dial == nil {
		return nil, errors.New("dialer is required")
	}

	return &Endpoints[C]{
		chain:     chain,
		endpoints: eps,
		dial:      dial,
		close:     closer,
		timeout:   o.timeout,
	}, nil
}

// Chain returns the chain symbol the endpoints serve.
func (e *Endpoints[C]) Chain() string { return e.chain }

// Len returns the number of endpoints.
func (e *Endpoints[C]) Len() int { return len(e.endpoints) }

// URL returns the URL of endpoint i.
func (e *Endpoints[C]) URL(i int) string { return e.endpoints[i].url }

// URLs returns every endpoint URL in order.
func (e *Endpoints[C]) URLs() []string {
	out := make([]string, len(e.endpoints))
	for i, ep := range e.endpoints {
		out[i] = ep.url
	}
	return out
}

// Timeout returns the per-call timeout.
func (e *Endpoints[C]) Timeout() time.Duration { return e.timeout }

// client returns the client for endpoint i, dialling it on first use.
// A failed dial is not cached, so the next call retries it.
func (e *Endpoints[C]) client(ctx context.Context, i int) (C, error) {
	ep := e.endpoints[i]
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.ready {
		return ep.client, nil
	}

	c, err := e.dial(ctx, ep.url)
	if err != nil {
		var zero C
		return zero, errors.Wrapf(err, "failed to dial %s", ep.url)
	}
	ep.client = c
	ep.ready = true
	return c, nil
}

// Call runs fn against endpoint i under the per-call timeout.
func (e *Endpoints[C]) Call(ctx context.Context, i int, fn func(ctx context.Context, c C) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	c, err := e.client(callCtx, i)
	if err != nil {
		return err
	}
	return fn(callCtx, c)
}

// Do walks the endpoints in order starting with the primary. It stops at the
// first success and returns that endpoint's index. A deterministic error is
// returned immediately; when every endpoint fails transiently the result is an
// all_endpoints_failed network error listing each failure.
func (e *Endpoints[C]) Do(ctx context.Context, fn func(ctx context.Context, c C) error) (int, error) {
	return e.DoFrom(ctx, 0, fn)
}

// DoFrom is Do starting at endpoint start and wrapping around.
func (e *Endpoints[C]) DoFrom(ctx context.Context, start int, fn func(ctx context.Context, c C) error) (int, error) {
	n := len(e.endpoints)
	failures := make(Failures, 0, n)

	for k := 0; k < n; k++ {
		i := (start + k) % n
		if err := ctx.Err(); err != nil {
			failures = append(failures, Failure{URL: e.endpoints[i].url, Err: err})
			break
		}

		err := e.Call(ctx, i, fn)
		if err == nil {
			return i, nil
		}
		if !IsTransient(err) {
			return i, err
		}

		log.Warn().
			Str("component", "rpc").
			Str("chain", e.chain).
			Str("url", e.endpoints[i].url).
			Err(err).
			Msg("RPC endpoint failed, trying next")
		failures = append(failures, Failure{URL: e.endpoints[i].url, Err: err})
	}

	return -1, errs.AllEndpointsFailed(failures, n)
}

// Close releases every dialled client.
func (e *Endpoints[C]) Close() {
	for _, ep := range e.endpoints {
		ep.mu.Lock()
		if ep.ready && e.close != nil {
			e.close(ep.client)
		}
		var zero C
		ep.client = zero
		ep.ready = false
		ep.mu.Unlock()
	}
}

// Failure is one endpoint's error.
type Failure struct {
	URL string
	Err error
}

// Failures aggregates the errors of a failed walk.
type Failures []Failure

func (f Failures) Error() string {
	parts := make([]string, len(f))
	for i, fail := range f {
		parts[i] = fail.URL + ": " + fail.Err.Error()
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes each endpoint's error to errors.Is and errors.As.
func (f Failures) Unwrap() []error {
	out := make([]error, len(f))
	for i, fail := range f {
		out[i] = fail.Err
	}
	return out
}
