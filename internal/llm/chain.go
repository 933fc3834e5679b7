package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Chain tries generators in order; the first one that answers wins. A
// service error from one provider falls through to the next, so swapping
// provider priority is a config change (llm.provider_order), not a code change.
type Chain struct {
	generators []Generator
	logger     *zap.Logger
}

// NewChain creates a fallback chain. An empty chain answers every request
// with ErrNoProvider.
func NewChain(logger *zap.Logger, generators ...Generator) *Chain {
	return &Chain{generators: generators, logger: logger}
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int { return len(c.generators) }

func (c *Chain) ProviderName() string {
	names := make([]string, len(c.generators))
	for i, g := range c.generators {
		names[i] = g.ProviderName()
	}
	return strings.Join(names, ",")
}

func (c *Chain) ModelName() string {
	names := make([]string, len(c.generators))
	for i, g := range c.generators {
		names[i] = g.ModelName()
	}
	return strings.Join(names, ",")
}

// Generate returns the first provider's response. When every provider fails,
// the last error is returned with its classification intact.
func (c *Chain) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(c.generators) == 0 {
		return nil, ErrNoProvider
	}

	var lastErr error
	for i, g := range c.generators {
		resp, err := g.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		var se *ServiceError
		if !errors.As(err, &se) {
			return nil, fmt.Errorf("%s: %w", g.ProviderName(), err)
		}
		lastErr = err

		if i < len(c.generators)-1 {
			c.logger.Warn("LLM provider failed, trying next",
				zap.String("request_context", req.Context),
				zap.String("provider", g.ProviderName()),
				zap.Error(err),
			)
		}
	}
	return nil, lastErr
}
