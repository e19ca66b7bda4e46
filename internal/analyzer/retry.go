// Package analyzer implements the per-modality analyzers that sit between
// the session orchestrator and the inference gateway. Analyzers never
// return errors to the orchestrator: every outcome, including exhaustion of
// retries, resolves into a ModalityResult.
package analyzer

import (
	"context"
	"time"

	"github.com/jcandel/hemoscan/internal/inference"
)

// RetryPolicy bounds retries on retriable gateway errors. Attempt n sleeps
// Base*Factor^n before retrying; retries never cross the session deadline
// because the session context is checked between attempts.
type RetryPolicy struct {
	Max    int
	Base   time.Duration
	Factor int
}

// withRetry runs fn, retrying retriable gateway errors per the policy.
// Returns the last error when attempts are exhausted.
func withRetry(ctx context.Context, p RetryPolicy, fn func(context.Context) error) error {
	backoff := p.Base
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !inference.IsRetriable(err) || attempt >= p.Max {
			return err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &inference.Error{Kind: inference.KindTimeout, Message: "session deadline reached during backoff", Cause: ctx.Err()}
		case <-timer.C:
		}
		backoff *= time.Duration(p.Factor)
	}
}
