// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts is returned when a retry budget of zero or less is requested.
var ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		// Exponential backoff: baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// retryEmbedder decorates an Embedder with a bounded timeout and retry budget
// per call. Context cancellation aborts the backoff loop immediately.
type retryEmbedder struct {
	inner       Embedder
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryEmbedder wraps an embedder so that each call is retried with
// exponential backoff up to maxAttempts, each attempt bounded by timeout.
// A zero timeout disables the per-attempt deadline.
func NewRetryEmbedder(inner Embedder, timeout time.Duration, maxAttempts int, baseDelay time.Duration) Embedder {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryEmbedder{
		inner:       inner,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// EmbedText implements Embedder.
func (r *retryEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := RetryWithBackoff(ctx, func() error {
		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()
		var opErr error
		result, opErr = r.inner.EmbedText(attemptCtx, text)
		return opErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EmbedTexts implements Embedder.
func (r *retryEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := RetryWithBackoff(ctx, func() error {
		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()
		var opErr error
		result, opErr = r.inner.EmbedTexts(attemptCtx, texts)
		return opErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Dimension implements Embedder.
func (r *retryEmbedder) Dimension() int {
	return r.inner.Dimension()
}

func (r *retryEmbedder) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}
