package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/trademark-service/internal/model"
)

const (
	// MaxAttempts is the total attempt budget per request.
	MaxAttempts = 3
	// TemperatureIncrement is added per retry after an empty or unparseable answer.
	TemperatureIncrement = 0.1
	// MaxTemperature caps temperature escalation.
	MaxTemperature = 0.6

	promptLogLimit   = 500
	responseLogLimit = 5000
)

// CallRecorder persists one row per generation attempt. storage.LLMCallRepository
// satisfies it.
type CallRecorder interface {
	Create(ctx context.Context, call *model.LLMCall) error
}

// Observer receives per-attempt outcomes for metrics.
type Observer interface {
	ObserveGeneration(provider, outcome string, duration time.Duration)
}

// Attempt outcomes reported to the Observer and the logs.
const (
	OutcomeSuccess   = "success"
	OutcomeEmpty     = "empty"
	OutcomeTransient = "transient_error"
	OutcomePermanent = "permanent_error"
	OutcomeInvalid   = "validation_error"
	OutcomeError     = "error"
)

// Validator is implemented by output types with semantic checks beyond the
// schema (ranges, enums). A failing Validate is a ValidationError and is not retried.
type Validator interface {
	Validate() error
}

// StructuredClient wraps a Generator with the attempt loop every structured
// request goes through. It holds no per-request state and is safe for
// concurrent use; each GenerateStructured call owns its temperature state.
type StructuredClient struct {
	generator Generator
	limiter   *rate.Limiter
	recorder  CallRecorder
	observer  Observer
	timeout   time.Duration
	logger    *zap.Logger
}

// Option customizes a StructuredClient.
type Option func(*StructuredClient)

// WithObserver reports every attempt to o.
func WithObserver(o Observer) Option {
	return func(c *StructuredClient) { c.observer = o }
}

// WithTimeout bounds each attempt; an attempt that runs out of time is a
// transient error. Zero means no per-attempt bound.
func WithTimeout(d time.Duration) Option {
	return func(c *StructuredClient) { c.timeout = d }
}

// NewStructuredClient creates a client over generator. ratePerMinute limits
// attempts across all goroutines (0 disables limiting). recorder may be nil.
func NewStructuredClient(
	generator Generator,
	ratePerMinute int,
	recorder CallRecorder,
	logger *zap.Logger,
	opts ...Option,
) *StructuredClient {
	c := &StructuredClient{
		generator: generator,
		recorder:  recorder,
		logger:    logger,
	}
	if ratePerMinute > 0 {
		// rate.Every returns a rate.Limit from a time interval between events.
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generator returns the underlying provider transport.
func (c *StructuredClient) Generator() Generator { return c.generator }

// RequestLabel builds a diagnostic label like "[Mark Assessment 1a2b3c4d]".
func RequestLabel(kind string) string {
	return fmt.Sprintf("[%s %s]", kind, uuid.NewString()[:8])
}

// EscalatedTemperature is the temperature of the retry that follows the
// given failed attempt (1-based).
func EscalatedTemperature(base float64, attempt int) float64 {
	t := math.Round((base+TemperatureIncrement*float64(attempt))*100) / 100
	return math.Min(MaxTemperature, t)
}

// GenerateStructured asks the model for a T and decodes it. Go methods
// can't have type parameters, so this is a function over the client.
//
// Up to MaxAttempts attempts are made:
//   - parsed output is returned immediately (after Validate, if T implements Validator);
//   - empty or unparseable output is retried with escalated temperature, and
//     EmptyOutputError is returned once the budget is spent;
//   - transient service errors are retried at the same temperature;
//   - permanent service errors are returned immediately;
//   - any other error becomes a ValidationError.
func GenerateStructured[T any](ctx context.Context, c *StructuredClient, req Request) (*T, error) {
	if req.Context == "" {
		req.Context = RequestLabel("LLM Request")
	}
	base := req.Sampling.Temperature
	log := c.logger.With(zap.String("request_context", req.Context))

	log.Info("structured request",
		zap.String("schema", req.Schema.Name),
		zap.Float64("temperature", req.Sampling.Temperature),
		zap.Float64("top_p", req.Sampling.TopP),
		zap.Int("top_k", req.Sampling.TopK),
		zap.String("prompt", truncate(req.Prompt, promptLogLimit)),
	)

	var lastParseErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				// The wait would outlast the deadline: the model budget is
				// exhausted for now, which callers treat like a 429.
				provider := "none"
				if c.generator != nil {
					provider = c.generator.ProviderName()
				}
				return nil, &ServiceError{
					Provider:   provider,
					StatusCode: http.StatusTooManyRequests,
					Transient:  true,
					Err:        fmt.Errorf("rate limit wait: %w", err),
				}
			}
		}

		start := time.Now()
		resp, err := c.generate(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				c.finishAttempt(ctx, req, attempt, resp, OutcomeError, err, elapsed)
				return nil, ctxErr
			}

			var se *ServiceError
			if !errors.As(err, &se) {
				c.finishAttempt(ctx, req, attempt, resp, OutcomeError, err, elapsed)
				return nil, &ValidationError{Schema: req.Schema.Name, Err: err}
			}

			if se.Transient {
				c.finishAttempt(ctx, req, attempt, resp, OutcomeTransient, err, elapsed)
				if attempt < MaxAttempts {
					log.Warn("transient API error, will retry", zap.Int("attempt", attempt), zap.Error(err))
					continue
				}
				return nil, err
			}
			c.finishAttempt(ctx, req, attempt, resp, OutcomePermanent, err, elapsed)
			return nil, err
		}

		log.Info("raw response",
			zap.Int("attempt", attempt),
			zap.String("provider", resp.Provider),
			zap.String("response", truncate(string(resp.Content), responseLogLimit)),
		)

		out, parseErr := decode[T](resp.Content, req.Schema.Required)
		if parseErr == nil {
			if v, ok := any(out).(Validator); ok {
				if err := v.Validate(); err != nil {
					c.finishAttempt(ctx, req, attempt, resp, OutcomeInvalid, err, elapsed)
					log.Error("validation failed", zap.Error(err))
					return nil, &ValidationError{Schema: req.Schema.Name, Err: err}
				}
			}
			c.finishAttempt(ctx, req, attempt, resp, OutcomeSuccess, nil, elapsed)
			return out, nil
		}

		lastParseErr = parseErr
		c.finishAttempt(ctx, req, attempt, resp, OutcomeEmpty, parseErr, elapsed)
		log.Warn("empty parsed data",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", MaxAttempts),
			zap.Error(parseErr),
		)

		if attempt < MaxAttempts {
			req.Sampling.Temperature = EscalatedTemperature(base, attempt)
			log.Info("retrying", zap.Float64("temperature", req.Sampling.Temperature))
		}
	}

	log.Error("all attempts failed")
	return nil, &EmptyOutputError{Context: req.Context, Attempts: MaxAttempts, Last: lastParseErr}
}

// generate runs one attempt under the per-attempt timeout.
func (c *StructuredClient) generate(ctx context.Context, req Request) (*Response, error) {
	if c.generator == nil {
		return nil, ErrNoProvider
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.generator.Generate(ctx, req)
}

// finishAttempt reports one attempt to the observer and the call ledger.
// Recording failures are logged, never returned.
func (c *StructuredClient) finishAttempt(ctx context.Context, req Request, attempt int, resp *Response, outcome string, attemptErr error, elapsed time.Duration) {
	provider, modelName := c.attribution(resp, attemptErr)

	if c.observer != nil {
		c.observer.ObserveGeneration(provider, outcome, elapsed)
	}
	if c.recorder == nil {
		return
	}

	durationMs := elapsed.Milliseconds()
	call := &model.LLMCall{
		RequestContext: req.Context,
		Provider:       provider,
		Model:          modelName,
		Schema:         req.Schema.Name,
		Attempt:        attempt,
		Temperature:    req.Sampling.Temperature,
		Success:        outcome == OutcomeSuccess,
		DurationMs:     &durationMs,
	}
	if attemptErr != nil {
		msg := attemptErr.Error()
		call.ErrorMessage = &msg
	}

	// The ledger row is written even when the request itself was cancelled.
	if err := c.recorder.Create(context.WithoutCancel(ctx), call); err != nil {
		c.logger.Error("recording LLM call", zap.String("request_context", req.Context), zap.Error(err))
	}
}

// attribution names the provider and model behind an attempt. A chain only
// knows which provider answered from the response or the service error.
func (c *StructuredClient) attribution(resp *Response, err error) (string, string) {
	if resp != nil && resp.Provider != "" {
		return resp.Provider, resp.Model
	}
	var se *ServiceError
	if errors.As(err, &se) && se.Provider != "" {
		return se.Provider, ""
	}
	if c.generator == nil {
		return "none", ""
	}
	return c.generator.ProviderName(), c.generator.ModelName()
}

var errEmptyContent = errors.New("empty content")

// decode parses raw JSON into T. Empty content, malformed JSON and missing
// required keys are all parse failures.
func decode[T any](raw []byte, required []string) (*T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errEmptyContent
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decoding output: %w", err)
	}
	for _, key := range required {
		if v, ok := fields[key]; !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("missing required field %q", key)
		}
	}

	var out T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decoding output: %w", err)
	}
	return &out, nil
}

// truncate shortens s to at most limit runes for logging.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
