package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestParseStandardHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  http.Header
		expected RateLimitInfo
	}{
		{
			name:     "empty_headers",
			headers:  http.Header{},
			expected: RateLimitInfo{},
		},
		{
			name: "retry_after_seconds",
			headers: http.Header{
				"Retry-After": []string{"30"},
			},
			expected: RateLimitInfo{
				RetryAfter: 30 * time.Second,
			},
		},
		{
			name: "rate_limit_reset_unix",
			headers: http.Header{
				"X-Ratelimit-Reset": []string{"1700000000"},
			},
			expected: RateLimitInfo{
				ResetTime: 1700000000,
			},
		},
		{
			name: "requests_remaining",
			headers: http.Header{
				"X-Ratelimit-Remaining": []string{"42"},
			},
			expected: RateLimitInfo{
				RequestsRemaining: 42,
			},
		},
		{
			name: "all_headers_combined",
			headers: http.Header{
				"Retry-After":           []string{"5"},
				"X-Ratelimit-Reset":     []string{"1700000000"},
				"X-Ratelimit-Remaining": []string{"0"},
			},
			expected: RateLimitInfo{
				RetryAfter: 5 * time.Second,
				ResetTime:  1700000000,
			},
		},
		{
			name: "malformed_retry_after",
			headers: http.Header{
				"Retry-After": []string{"not-a-number"},
			},
			expected: RateLimitInfo{},
		},
		{
			name: "malformed_reset",
			headers: http.Header{
				"X-Ratelimit-Reset": []string{"soon"},
			},
			expected: RateLimitInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseStandardHeaders(tt.headers)
			if result.RetryAfter != tt.expected.RetryAfter {
				t.Errorf("ParseStandardHeaders() RetryAfter = %v, want %v", result.RetryAfter, tt.expected.RetryAfter)
			}
			if result.ResetTime != tt.expected.ResetTime {
				t.Errorf("ParseStandardHeaders() ResetTime = %v, want %v", result.ResetTime, tt.expected.ResetTime)
			}
			if result.RequestsRemaining != tt.expected.RequestsRemaining {
				t.Errorf("ParseStandardHeaders() RequestsRemaining = %v, want %v", result.RequestsRemaining, tt.expected.RequestsRemaining)
			}
		})
	}
}

func TestParseStandardHeaders_HTTPDate(t *testing.T) {
	future := time.Now().Add(90 * time.Second).UTC()
	headers := http.Header{
		"Retry-After": []string{future.Format(http.TimeFormat)},
	}

	result := ParseStandardHeaders(headers)
	if result.RetryAfter < 85*time.Second || result.RetryAfter > 91*time.Second {
		t.Errorf("ParseStandardHeaders() RetryAfter = %v, want approximately 90s", result.RetryAfter)
	}
}

func TestParseStandardHeaders_PastHTTPDate(t *testing.T) {
	past := time.Now().Add(-time.Minute).UTC()
	headers := http.Header{
		"Retry-After": []string{past.Format(http.TimeFormat)},
	}

	result := ParseStandardHeaders(headers)
	if result.RetryAfter != 0 {
		t.Errorf("ParseStandardHeaders() RetryAfter = %v, want 0 for past date", result.RetryAfter)
	}
}

func TestParseAmazonHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  http.Header
		expected RateLimitInfo
	}{
		{
			name:     "empty_headers",
			headers:  http.Header{},
			expected: RateLimitInfo{},
		},
		{
			name: "retry_after_seconds",
			headers: http.Header{
				"Retry-After": []string{"12"},
			},
			expected: RateLimitInfo{
				RetryAfter: 12 * time.Second,
			},
		},
		{
			name: "malformed_retry_after_ignored",
			headers: http.Header{
				"Retry-After": []string{"later"},
			},
			expected: RateLimitInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAmazonHeaders(tt.headers)
			if result.RetryAfter != tt.expected.RetryAfter {
				t.Errorf("ParseAmazonHeaders() RetryAfter = %v, want %v", result.RetryAfter, tt.expected.RetryAfter)
			}
		})
	}
}
