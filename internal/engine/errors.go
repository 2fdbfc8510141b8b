package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// ErrInvalidInput marks malformed URLs, identifiers and parameters.
// Returned before any cache or network activity and never retried.
var ErrInvalidInput = errors.New("invalid input")

// ErrQuotaExceeded is matched by errors.Is on every QuotaExceededError.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// ErrNotFound is returned when the upstream answers with no items.
var ErrNotFound = errors.New("not found")

// Reason codes reported by the Data API that the client acts on.
const (
	ReasonCommentsDisabled = "commentsDisabled"
	ReasonQuotaExceeded    = "quotaExceeded"
	ReasonTimeout          = "timeout"
)

// InvalidInputf builds an ErrInvalidInput with a formatted detail message.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// APIError wraps any failure from the YouTube Data API boundary.
// StatusCode is 0 and Reason is "" when the upstream did not provide them.
type APIError struct {
	Message    string
	StatusCode int
	Reason     string
	Err        error
}

func (e *APIError) Error() string {
	var sb strings.Builder
	sb.WriteString("youtube api")
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " %d", e.StatusCode)
	}
	if e.Reason != "" {
		fmt.Fprintf(&sb, " (%s)", e.Reason)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// QuotaExceededError is returned by the rate limiter once the daily ceiling is hit.
type QuotaExceededError struct {
	Limit   int
	ResetIn time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota of %d requests exceeded, resets in %s", e.Limit, e.ResetIn.Round(time.Second))
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// ReasonOf returns the upstream reason code carried by err, if any.
func ReasonOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// classifyError converts an upstream failure into *APIError.
// Invalid input, quota and caller cancellation pass through untouched.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrQuotaExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		out := &APIError{Message: gErr.Message, StatusCode: gErr.Code, Err: err}
		if len(gErr.Errors) > 0 {
			out.Reason = gErr.Errors[0].Reason
			if out.Message == "" {
				out.Message = gErr.Errors[0].Message
			}
		}
		if out.Message == "" {
			out.Message = gErr.Body
		}
		return out
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Message: "request timed out", Reason: ReasonTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{Message: "request timed out", Reason: ReasonTimeout, Err: err}
	}
	return &APIError{Message: "unexpected error: " + err.Error(), Err: err}
}
