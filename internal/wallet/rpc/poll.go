package rpc

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrPollExhausted is returned by Poll when every attempt ran without the probe reporting done.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// Probe checks a condition once. done ends polling; a transient error is
// treated as "not yet" and any other error stops polling.
type Probe func(ctx context.Context) (done bool, err error)

// Poll runs probe up to attempts times, waiting interval between attempts.
// It returns nil once the probe reports done, ErrPollExhausted when attempts
// run out, and ctx.Err() when the context ends first.
func Poll(ctx context.Context, interval time.Duration, attempts int, probe Probe) error {
	if attempts <= 0 {
		attempts = 1
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer.Reset(interval)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := probe(ctx)
		if err != nil && !IsTransient(err) {
			return err
		}
		if done {
			return nil
		}
	}

	return ErrPollExhausted
}
