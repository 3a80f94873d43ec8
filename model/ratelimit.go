package model

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited paces calls to an underlying Model with a token bucket so a
// burst of agent rounds does not trip provider quotas.
type RateLimited struct {
	next    Model
	limiter *rate.Limiter
}

// NewRateLimited wraps next allowing perSecond calls with the given burst.
func NewRateLimited(next Model, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Generate waits for a token then delegates.
func (r *RateLimited) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	if err := r.limiter.Wait(ctx); err != nil {
		respCh := make(chan Response)
		errCh := make(chan error, 1)
		errCh <- fmt.Errorf("rate limit wait: %w", err)
		close(respCh)
		close(errCh)
		return respCh, errCh
	}
	return r.next.Generate(ctx, req)
}

// Info implements Model.
func (r *RateLimited) Info() Info { return r.next.Info() }
