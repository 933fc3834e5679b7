package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fleveque/trademark-service/internal/llm"
)

func TestNewServiceErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		err       error
		transient bool
	}{
		{"429", 429, errors.New("too many requests"), true},
		{"408", 408, errors.New("request timeout"), true},
		{"504", 504, errors.New("gateway"), true},
		{"rate limit message", 0, errors.New("Rate limit reached for requests"), true},
		{"timeout message", 0, errors.New("dial tcp: i/o timeout"), true},
		{"deadline", 0, fmt.Errorf("post: %w", context.DeadlineExceeded), true},
		{"bad request", 400, errors.New("invalid schema"), false},
		{"unauthorized", 401, errors.New("invalid x-api-key"), false},
		{"server error", 500, errors.New("internal"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := llm.NewServiceError("fake", tt.status, tt.err)
			if se.Transient != tt.transient {
				t.Errorf("Transient = %v, want %v", se.Transient, tt.transient)
			}
			if llm.IsTransient(se) != tt.transient || llm.IsPermanent(se) == tt.transient {
				t.Error("IsTransient/IsPermanent disagree with classification")
			}
			if !errors.Is(se, tt.err) {
				t.Error("expected ServiceError to unwrap to the cause")
			}
		})
	}
}

func TestIsTransientOnPlainError(t *testing.T) {
	err := errors.New("rate limit")
	if llm.IsTransient(err) || llm.IsPermanent(err) {
		t.Error("plain errors are neither transient nor permanent service errors")
	}
}
