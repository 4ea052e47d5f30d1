package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithExponentialBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := WithExponentialBackoff(context.Background(), operation)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("read timed out")
		}
		return nil
	}

	err := WithExponentialBackoff(context.Background(), operation, WithInitialDelay(10*time.Millisecond))

	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_MaxRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		return errors.New("persistent error")
	}

	maxRetries := 3
	err := WithExponentialBackoff(context.Background(), operation,
		WithMaxRetries(maxRetries),
		WithInitialDelay(10*time.Millisecond))

	if err == nil {
		t.Error("Expected error after max retries, got nil")
	}
	// MaxRetries counts retries after the first attempt.
	if attempts != maxRetries+1 {
		t.Errorf("Expected %d attempts (1 + %d retries), got: %d", maxRetries+1, maxRetries, attempts)
	}
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	t.Parallel()
	attempts := 0
	operation := func() error {
		attempts++
		return errors.New("error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, operation, WithInitialDelay(10*time.Millisecond))

	if err == nil {
		t.Error("Expected error due to context cancellation, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before context check, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_FatalError(t *testing.T) {
	t.Parallel()
	sessionLost := errors.New("line session lost")
	attempts := 0
	operation := func() error {
		attempts++
		return Fatal(sessionLost)
	}

	err := WithExponentialBackoff(context.Background(), operation, WithInitialDelay(10*time.Millisecond))

	if err == nil {
		t.Error("Expected fatal error, got nil")
	}
	if !IsFatal(err) {
		t.Errorf("Expected fatal error, got: %v", err)
	}
	if !errors.Is(err, sessionLost) {
		t.Errorf("Expected underlying error to survive wrapping, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retries for fatal error), got: %d", attempts)
	}
}

func TestWithExponentialBackoff_BackoffTiming(t *testing.T) {
	t.Parallel()
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	operation := func() error {
		attempts++
		now := time.Now()
		if attempts > 1 {
			delays = append(delays, now.Sub(lastTime))
		}
		lastTime = now
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}

	err := WithExponentialBackoff(context.Background(), operation,
		WithMaxRetries(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(200*time.Millisecond),
		WithMultiplier(2.0))

	if err != nil {
		t.Errorf("Expected success after retries, got: %v", err)
	}
	if len(delays) != 3 {
		t.Fatalf("Expected 3 delays, got: %d", len(delays))
	}

	tolerance := 20 * time.Millisecond
	expectedDelays := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond, // capped at max
	}
	for i, delay := range delays {
		expected := expectedDelays[i]
		if delay < expected-tolerance || delay > expected+tolerance {
			t.Errorf("Delay %d: expected ~%v, got %v", i+1, expected, delay)
		}
	}
}

func TestFatal(t *testing.T) {
	t.Parallel()
	if err := Fatal(nil); err != nil {
		t.Errorf("Expected nil, got: %v", err)
	}

	originalErr := errors.New("test error")
	err := Fatal(originalErr)
	if !IsFatal(err) {
		t.Error("Expected error to be fatal")
	}
	if err.Error() != originalErr.Error() {
		t.Errorf("Expected error message %q, got %q", originalErr.Error(), err.Error())
	}
	if errors.Unwrap(err) != originalErr {
		t.Errorf("errors.Unwrap() returned %v, want %v", errors.Unwrap(err), originalErr)
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()
	if IsFatal(errors.New("regular error")) {
		t.Error("Expected non-fatal error")
	}

	sentinel := errors.New("sentinel error")
	wrapped := fmt.Errorf("context: %w", Fatal(sentinel))
	if !IsFatal(wrapped) {
		t.Error("IsFatal should detect FatalError through fmt.Errorf wrapping")
	}
	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is should find sentinel through wrapped FatalError")
	}
}
