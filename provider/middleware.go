package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/kalc/logger"
)

// RateLimitedResolver throttles batches through a token bucket. When the
// limiter cannot admit the batch within the context's lifetime, every
// still-pending ref in the batch fails with RATE_LIMIT rather than leaving
// the resolution context half-settled.
type RateLimitedResolver struct {
	inner   BatchResolver
	limiter *rate.Limiter
}

// NewRateLimitedResolver admits at most rps batches per second with the
// given burst.
func NewRateLimitedResolver(inner BatchResolver, rps float64, burst int) *RateLimitedResolver {
	return &RateLimitedResolver{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Resolve implements BatchResolver.
func (r *RateLimitedResolver) Resolve(ctx context.Context, refs []Ref, rctx *ResolutionContext) error {
	unique := Dedup(refs)
	if err := r.limiter.Wait(ctx); err != nil {
		logger.Warnw("Resolver rate limit tripped", "refs", len(unique), "error", err)
		for _, ref := range unique {
			rctx.Fail(ref, &ResolutionError{Kind: ErrKindRateLimit, Message: err.Error()})
		}
		return nil
	}
	return r.inner.Resolve(ctx, unique, rctx)
}

// TimeoutResolver bounds each batch with a deadline. On expiry, every ref
// the inner resolver left pending fails with TIMEOUT.
type TimeoutResolver struct {
	inner   BatchResolver
	timeout time.Duration
}

// NewTimeoutResolver wraps inner with a per-batch deadline.
func NewTimeoutResolver(inner BatchResolver, timeout time.Duration) *TimeoutResolver {
	return &TimeoutResolver{inner: inner, timeout: timeout}
}

// Resolve implements BatchResolver.
func (t *TimeoutResolver) Resolve(ctx context.Context, refs []Ref, rctx *ResolutionContext) error {
	unique := Dedup(refs)
	deadlineCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- t.inner.Resolve(deadlineCtx, unique, rctx)
	}()

	select {
	case err := <-done:
		return err
	case <-deadlineCtx.Done():
		logger.Warnw("Resolver batch timed out", "refs", len(unique), "timeout", t.timeout)
		for _, ref := range unique {
			if rctx.IsPending(ref) {
				rctx.Fail(ref, &ResolutionError{Kind: ErrKindTimeout, Message: deadlineCtx.Err().Error()})
			}
		}
		// The inner resolver observes deadlineCtx and unwinds on its own.
		// Should it keep running anyway, the TIMEOUT outcomes recorded above
		// are final: ResolutionContext keeps the first settled outcome per
		// ref, so a straggling write cannot flip them.
		return nil
	}
}
