package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ruralpay/ledger/internal/store"
)

// runInTx runs fn in one unit of work. When an account version moved underneath it the
// whole unit is retried from the start, up to maxTries times, before a ConcurrencyError.
func runInTx(ctx context.Context, st store.Store, maxTries int, fn func(tx store.Tx) error) error {
	if maxTries < 1 {
		maxTries = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := st.WithTx(ctx, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, store.ErrOptimisticLock):
			log.Printf("[LEDGER] Optimistic lock conflict on attempt %d: %v", attempts, err)
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(maxTries)))

	if err != nil && errors.Is(err, store.ErrOptimisticLock) {
		return &ConcurrencyError{Attempts: attempts, Err: err}
	}
	return err
}
