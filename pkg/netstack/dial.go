package netstack

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"chainflow/pkg/transport"
)

// Options tune dial retries.
type Options struct {
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// MaxElapsed bounds the total time spent retrying. Zero retries until
	// ctx ends.
	MaxElapsed time.Duration
	// Attempts caps the number of retries after the first dial. Zero means
	// no cap.
	Attempts uint64
}

func (o Options) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.BackoffInitial
	if b.InitialInterval <= 0 {
		b.InitialInterval = 500 * time.Millisecond
	}
	b.MaxInterval = o.BackoffMax
	if b.MaxInterval <= 0 {
		b.MaxInterval = 30 * time.Second
	}
	b.MaxElapsedTime = o.MaxElapsed
	var bo backoff.BackOff = b
	if o.Attempts > 0 {
		bo = backoff.WithMaxRetries(bo, o.Attempts)
	}
	return backoff.WithContext(bo, ctx)
}

// Dial opens a session to address, retrying with exponential backoff.
func Dial(ctx context.Context, tr transport.Transport, address string, opts Options) (transport.Session, error) {
	op := func() (transport.Session, error) {
		return tr.Dial(ctx, address)
	}
	notify := func(err error, next time.Duration) {
		zap.L().Warn("dial failed", zap.String("kind", tr.Kind().String()), zap.String("addr", address),
			zap.Duration("retry_in", next), zap.Error(err))
	}
	sess, err := backoff.RetryNotifyWithData(op, opts.backOff(ctx), notify)
	if err != nil {
		return nil, err
	}
	zap.L().Info("dialed", zap.String("kind", tr.Kind().String()), zap.String("addr", address))
	return sess, nil
}
