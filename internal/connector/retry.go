package connector

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

// RetryPolicy is the single place provider-call retry behavior is defined.
// Callers inject it once when wrapping a connector instead of re-rolling
// backoff math per call site.
type RetryPolicy struct {
	MaxTries     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:     4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Jitter:       0.5,
	}
}

type retrying struct {
	inner  Connector
	policy RetryPolicy
	log    *logger.Logger
}

// WithRetry decorates a connector so transient fetch failures are retried
// with exponential backoff and jitter. ErrNotConnected and context
// cancellation pass through immediately.
func WithRetry(inner Connector, policy RetryPolicy, baseLog *logger.Logger) Connector {
	return &retrying{
		inner:  inner,
		policy: policy,
		log:    baseLog.With("connector", inner.Provider(), "decorator", "retry"),
	}
}

func (r *retrying) Provider() string {
	return r.inner.Provider()
}

func (r *retrying) FetchPage(ctx context.Context, conn *types.UserConnection, window Window, cursor string) (*Page, error) {
	ctx, span := otel.Tracer("connector").Start(ctx, "connector.FetchPage",
		trace.WithAttributes(attribute.String("provider", r.inner.Provider())))
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialDelay
	b.MaxInterval = r.policy.MaxDelay
	b.RandomizationFactor = r.policy.Jitter

	attempt := 0
	operation := func() (*Page, error) {
		attempt++
		page, err := r.inner.FetchPage(ctx, conn, window, cursor)
		if err != nil {
			if errors.Is(err, ErrNotConnected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, backoff.Permanent(err)
			}
			r.log.Warn("FetchPage failed, will retry", "attempt", attempt, "error", err)
			return nil, err
		}
		return page, nil
	}

	page, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.policy.MaxTries),
	)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrNotConnected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, FetchFailed(err)
	}
	return page, nil
}
