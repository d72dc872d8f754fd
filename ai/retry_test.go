package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first attempt", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return nil
		}, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts budget", func(t *testing.T) {
		sentinel := errors.New("still down")
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return sentinel
		}, 3, time.Millisecond)
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 3, calls)
	})

	t.Run("invalid max attempts", func(t *testing.T) {
		err := RetryWithBackoff(ctx, func() error { return nil }, 0, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("cancellation aborts backoff", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		calls := 0
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()
		err := RetryWithBackoff(cancelCtx, func() error {
			calls++
			return errors.New("transient")
		}, 10, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

type failingEmbedder struct {
	failures int
	calls    int
	dim      int
}

func (f *failingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	return make([]float32, f.dim), nil
}

func (f *failingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *failingEmbedder) Dimension() int { return f.dim }

func TestRetryEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers from transient failures", func(t *testing.T) {
		inner := &failingEmbedder{failures: 2, dim: 4}
		e := NewRetryEmbedder(inner, time.Second, 3, time.Millisecond)

		vec, err := e.EmbedText(ctx, "hello")
		require.NoError(t, err)
		assert.Len(t, vec, 4)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("surfaces exhaustion", func(t *testing.T) {
		inner := &failingEmbedder{failures: 10, dim: 4}
		e := NewRetryEmbedder(inner, time.Second, 2, time.Millisecond)

		_, err := e.EmbedText(ctx, "hello")
		assert.Error(t, err)
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("batch path retries too", func(t *testing.T) {
		inner := &failingEmbedder{failures: 1, dim: 4}
		e := NewRetryEmbedder(inner, time.Second, 3, time.Millisecond)

		vecs, err := e.EmbedTexts(ctx, []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, vecs, 2)
	})

	t.Run("reports inner dimension", func(t *testing.T) {
		e := NewRetryEmbedder(&failingEmbedder{dim: 7}, 0, 1, 0)
		assert.Equal(t, 7, e.Dimension())
	})
}
