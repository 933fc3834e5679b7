package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoProvider is returned when no LLM provider is configured. It is a
// permanent service error.
var ErrNoProvider = &ServiceError{Provider: "none", Err: errors.New("no LLM provider configured")}

// EmptyOutputError means the model produced no parseable structured content
// in any attempt.
type EmptyOutputError struct {
	Context  string
	Attempts int
	// Last is the parse failure of the final attempt, nil if the output was simply empty.
	Last error
}

func (e *EmptyOutputError) Error() string {
	msg := fmt.Sprintf("%s: model returned no parseable output after %d attempts", e.Context, e.Attempts)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *EmptyOutputError) Unwrap() error { return e.Last }

// ValidationError means the model output parsed but failed validation, or an
// unexpected non-service error happened while handling it.
type ValidationError struct {
	Schema string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: output failed validation: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ServiceError is a failure reported by the provider transport. Transient
// errors (rate limits, timeouts) are retried; permanent ones are not.
type ServiceError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ServiceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (%s, HTTP %d): %v", e.Provider, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API error (%s): %v", e.Provider, kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable service error.
func IsTransient(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Transient
}

// IsPermanent reports whether err is a non-retryable service error.
func IsPermanent(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && !se.Transient
}

// transientMarkers are the message fragments that mark an error as rate
// limiting or a timeout when the status code alone does not.
var transientMarkers = []string{"rate limit", "timeout", "timed out", "deadline exceeded"}

// NewServiceError classifies a provider failure. statusCode is 0 when the
// request never got an HTTP response.
func NewServiceError(provider string, statusCode int, err error) *ServiceError {
	return &ServiceError{
		Provider:   provider,
		StatusCode: statusCode,
		Transient:  isTransient(statusCode, err),
		Err:        err,
	}
}

func isTransient(statusCode int, err error) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
