package script

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSuperseded is returned by an evaluation that a newer one replaced.
var ErrSuperseded = errors.New("script: evaluation superseded by newer request")

type evalResult struct {
	result *Result
	errors []EvalError
	err    error
}

// waitWithTimeout waits for ch, giving up after timeout or when ctx ends.
// current reports the newest generation; a result from an older one is
// discarded.
//
// When it gives up the evaluating goroutine may still be running. The
// caller cancels ctx, which stops the remaining builtins from touching the
// scene.
func waitWithTimeout(ctx context.Context, ch <-chan evalResult, timeout time.Duration, gen uint64, current func() uint64) (*Result, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != current() {
			return nil, nil, ErrSuperseded
		}
		return res.result, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("script: evaluation timed out after %s", timeout)
	case <-ctx.Done():
		if gen != current() {
			return nil, nil, ErrSuperseded
		}
		return nil, nil, fmt.Errorf("script: %w", ctx.Err())
	}
}
