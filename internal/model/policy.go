package model

import (
	"fmt"
	"strings"
)

// FailurePolicy decides what happens when a model call fails inside an
// assessment. It is chosen once at startup and injected into the builders
// and the batch orchestrator.
type FailurePolicy int

const (
	// Lenient favors availability: conceptual failures fall back to a neutral
	// score and failed goods/services pairs are dropped but counted.
	Lenient FailurePolicy = iota
	// Strict propagates the first failure to the caller.
	Strict
)

func (p FailurePolicy) String() string {
	switch p {
	case Lenient:
		return "lenient"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy reads a policy name from configuration. An empty string
// means lenient.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("unknown failure policy %q (want lenient or strict)", s)
	}
}
