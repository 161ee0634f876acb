package common

import (
	"context"
	"time"
)

// PollUntil evaluates predicate every interval until it returns true, the
// timeout elapses, or ctx is cancelled. It replaces ad hoc polling loops:
// every wait in the automation layer is bounded by an explicit timeout and
// interval. A predicate error aborts the poll immediately. Timeout returns
// (false, nil); cancellation of the parent context returns its error, so
// callers can tell "gave up waiting" from "caller went away".
func PollUntil(ctx context.Context, interval, timeout time.Duration, predicate func(context.Context) (bool, error)) (bool, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Check once up front so a fast predicate never waits a full interval
	ok, err := predicate(pollCtx)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	for {
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		case <-ticker.C:
			ok, err := predicate(pollCtx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
}
