package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWithRetryRetriesRetryableErrors(t *testing.T) {
	calls := 0
	text, err := withRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &retryableError{err: fmt.Errorf("attempt %d", calls)}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if text != "ok" {
		t.Fatalf("text = %q", text)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsAfterMaxRetries(t *testing.T) {
	calls := 0
	cause := fmt.Errorf("still down")
	_, err := withRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", &retryableError{err: cause}
	})
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want last attempt's cause", err)
	}
	if calls != maxRetries+1 {
		t.Fatalf("calls = %d, want %d", calls, maxRetries+1)
	}
}

func TestWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", fmt.Errorf("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", &retryableError{err: fmt.Errorf("flaky")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want no retry after cancellation", calls)
	}
}

func TestIsRetryableUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", &retryableError{err: fmt.Errorf("503")})
	if !isRetryable(wrapped) {
		t.Fatal("wrapped retryable error should stay retryable")
	}
	if isRetryable(fmt.Errorf("plain")) {
		t.Fatal("plain error must not be retryable")
	}
}
