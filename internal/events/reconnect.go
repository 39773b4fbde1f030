package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/numeraire/swissknife-go/internal/logger"
)

// Subscriber is implemented by a provider's raw stream connector: Connect
// blocks delivering events to sink until the stream ends or ctx is
// cancelled, returning the error that ended it (nil on clean EOF).
type Subscriber interface {
	Connect(ctx context.Context, sink Sink) error
}

// ReconnectLoop wraps a Subscriber with the retry_delay/retry_delay_max
// backoff from spec §5: on any transport failure, sleep then reconnect,
// resetting the delay after a period of healthy connection.
type ReconnectLoop struct {
	Sub           Subscriber
	RetryDelay    time.Duration
	RetryDelayMax time.Duration
	Log           *logger.Logger
}

// Run implements Listener.
func (r *ReconnectLoop) Run(ctx context.Context, sink Sink) error {
	delay := r.RetryDelay
	for {
		connectedAt := time.Now()
		err := r.Sub.Connect(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			r.Log.Warn("event stream disconnected", zap.Error(err))
		}

		if time.Since(connectedAt) > r.RetryDelayMax {
			delay = r.RetryDelay
		} else {
			delay *= 2
			if delay > r.RetryDelayMax {
				delay = r.RetryDelayMax
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
