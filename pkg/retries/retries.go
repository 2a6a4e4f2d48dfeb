// Retry and error-capture helpers shared by all chain and API I/O.

package retries

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// OperationRetries is the number of retries after the first attempt
	// for transient RPC and HTTP failures. Semantic per-request failures
	// (decoding, authorization) are never retried.
	OperationRetries = 2

	// DefaultTimeout bounds a single attempt
	DefaultTimeout = 10 * time.Second

	initialBackoff = 250 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Go runs fn and converts any panic into an error result, so a single
// failing operation cannot throw out of a pipeline stage.
func Go[T any](fn func() (T, error)) (err error, value T) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	value, err = fn()
	return err, value
}

// Retry runs op up to 1+OperationRetries times with exponential backoff.
// Each attempt gets its own DefaultTimeout deadline.
func Retry[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (T, error) {
	var value T

	policy := backoff.WithMaxRetries(newExponential(), OperationRetries)
	policy = backoff.WithContext(policy, ctx)

	err := backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()

		v, err := op(attemptCtx)
		if err != nil {
			return err
		}
		value = v
		return nil
	}, policy)
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func newExponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoff
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0
	return b
}
