package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError carries provider error details relevant to retry decisions
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
	RetryAfter *time.Duration
	// Permanent is set for quota exhaustion, which retrying soon cannot fix
	Permanent bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError reports whether err looks like a transient rate limit
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 && !apiErr.Permanent
	}
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

// IsQuotaError reports whether err indicates exhausted quota or billing
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Permanent || apiErr.Code == "insufficient_quota"
	}
	s := err.Error()
	return strings.Contains(s, "insufficient_quota") ||
		strings.Contains(s, "quota") ||
		strings.Contains(s, "billing")
}

// ExtractAPIError parses provider error details out of err, or returns nil
// when err is not a recognized API error. The OpenAI SDK embeds a JSON
// error object in the message, which is the only structured detail we get.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	s := err.Error()
	if !strings.Contains(s, "429") {
		return nil
	}

	apiErr := &APIError{
		StatusCode: 429,
		Message:    s,
		Type:       "rate_limit_error",
	}

	if start := strings.Index(s, "{"); start != -1 {
		body := s[start:]
		if end := strings.LastIndex(body, "}"); end != -1 {
			var detail struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(body[:end+1]), &detail) == nil {
				apiErr.Message = detail.Message
				apiErr.Type = detail.Type
				apiErr.Code = detail.Code
				apiErr.Permanent = detail.Code == "insufficient_quota"
			}
		}
	}

	retryAfter := 60 * time.Second
	if apiErr.Permanent {
		retryAfter = time.Hour
	}
	apiErr.RetryAfter = &retryAfter
	return apiErr
}

// GetRetryDelay returns how long to wait before retrying a failed provider
// call, scaled by attempt with a ceiling per error class
func GetRetryDelay(err error, attempt int) time.Duration {
	// Bound the shift so the backoff math cannot overflow
	shift := uint(0)
	if attempt > 0 {
		if attempt > 10 {
			attempt = 10
		}
		shift = uint(attempt)
	}

	switch {
	case IsQuotaError(err):
		delay := time.Hour * time.Duration(1<<shift)
		if delay > 24*time.Hour {
			delay = 24 * time.Hour
		}
		return delay
	case IsRateLimitError(err):
		delay := 60 * time.Second * time.Duration(1<<shift)
		if delay > 15*time.Minute {
			delay = 15 * time.Minute
		}
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	default:
		delay := 5 * time.Second * time.Duration(1<<shift)
		if delay > 5*time.Minute {
			delay = 5 * time.Minute
		}
		return delay
	}
}
