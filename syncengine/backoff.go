package syncengine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/Monynha-Softwares/botecopro-sync/syncclient"
)

// Backoff is the retry policy for sync calls. Retries are attempted on
// transport errors and 5xx protocol errors; 4xx responses are the server
// telling us the request itself is wrong, so they fail immediately.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

func defaultBackoff() Backoff {
	return Backoff{
		Base:       500 * time.Millisecond,
		Max:        30 * time.Second,
		MaxRetries: 4,
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if perr, ok := syncclient.IsProtocolError(err); ok {
		return perr.StatusCode >= 500
	}
	// Transport-level failure.
	return true
}

// run invokes fn, retrying with exponential backoff and jitter.
func (b Backoff) run(ctx context.Context, fn func() error) error {
	delay := b.Base
	var err error

	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= b.MaxRetries || !retryable(err) {
			return err
		}

		jittered := delay + time.Duration(rand.Int63n(int64(delay)/2+1))
		select {
		case <-time.After(jittered):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
}
