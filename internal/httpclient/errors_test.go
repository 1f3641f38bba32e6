package httpclient

import (
	"errors"
	"testing"
	"time"
)

func TestRetryableError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RetryableError
		expected string
	}{
		{
			name: "error_with_retry_after",
			err: &RetryableError{
				StatusCode: 429,
				Message:    "Rate limit exceeded",
				RetryAfter: 30 * time.Second,
				Err:        errors.New("underlying error"),
			},
			expected: "HTTP 429: Rate limit exceeded (retry after 30s)",
		},
		{
			name: "error_without_retry_after",
			err: &RetryableError{
				StatusCode: 500,
				Message:    "Internal server error",
				RetryAfter: 0,
				Err:        errors.New("underlying error"),
			},
			expected: "HTTP 500: Internal server error",
		},
		{
			name: "error_with_millisecond_retry_after",
			err: &RetryableError{
				StatusCode: 429,
				Message:    "Rate limit exceeded",
				RetryAfter: 1500 * time.Millisecond,
				Err:        errors.New("underlying error"),
			},
			expected: "HTTP 429: Rate limit exceeded (retry after 1.5s)",
		},
		{
			name: "error_with_zero_status_code",
			err: &RetryableError{
				StatusCode: 0,
				Message:    "Unknown error",
				RetryAfter: 5 * time.Second,
				Err:        errors.New("underlying error"),
			},
			expected: "HTTP 0: Unknown error (retry after 5s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("RetryableError.Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestRetryableError_Unwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	retryErr := &RetryableError{
		StatusCode: 429,
		Message:    "Rate limit exceeded",
		RetryAfter: 30 * time.Second,
		Err:        underlyingErr,
	}

	if got := retryErr.Unwrap(); got != underlyingErr {
		t.Errorf("RetryableError.Unwrap() = %v, want %v", got, underlyingErr)
	}

	nilErr := &RetryableError{StatusCode: 500, Message: "Internal server error"}
	if got := nilErr.Unwrap(); got != nil {
		t.Errorf("RetryableError.Unwrap() = %v, want nil", got)
	}
}

func TestRetryableError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *RetryableError
	}{
		{
			name: "gateway_rate_limit",
			err: &RetryableError{
				StatusCode: 429,
				Message:    "Rate limit exceeded",
				RetryAfter: 30 * time.Second,
				Err:        errors.New("HTTP 429"),
			},
		},
		{
			name: "runtime_server_error",
			err: &RetryableError{
				StatusCode: 500,
				Message:    "Internal server error",
				RetryAfter: 0,
				Err:        errors.New("HTTP 500"),
			},
		},
		{
			name: "max_retries_exceeded",
			err: &RetryableError{
				StatusCode: 0,
				Message:    "max HTTP retries (5) exceeded",
				RetryAfter: 10 * time.Second,
				Err:        errors.New("max retries exceeded"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.err.IsRetryable() {
				t.Error("Expected IsRetryable()=true")
			}
		})
	}
}

func TestRetryableError_ErrorWrapping(t *testing.T) {
	underlyingErr := errors.New("network timeout")
	retryErr := &RetryableError{
		StatusCode: 408,
		Message:    "Request timeout",
		RetryAfter: 5 * time.Second,
		Err:        underlyingErr,
	}

	if unwrapped := retryErr.Unwrap(); unwrapped != underlyingErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, underlyingErr)
	}

	if !errors.Is(retryErr, underlyingErr) {
		t.Error("errors.Is should return true for wrapped error")
	}

	var asRetryErr *RetryableError
	if !errors.As(retryErr, &asRetryErr) {
		t.Error("errors.As should work with RetryableError")
	}
	if asRetryErr.StatusCode != 408 {
		t.Errorf("As() StatusCode = %d, want 408", asRetryErr.StatusCode)
	}
}
