// Package llm turns an external generative model into a source of typed,
// schema-conforming values.
//
// A Generator is one provider transport (Anthropic, OpenAI, or a chain of
// them). StructuredClient wraps a Generator with the retry, temperature
// escalation, rate limiting and call recording that every assessment needs,
// and GenerateStructured decodes the result into a Go type.
package llm

import "context"

// Default sampling configuration for assessment calls.
const (
	DefaultTemperature = 0.2
	DefaultTopP        = 0.95
	DefaultTopK        = 40
	DefaultMaxTokens   = 8192
)

// Schema describes the structured output the model must produce. Properties
// is a JSON Schema "properties" object; Required lists the keys that must be
// present for the output to count as parsed.
type Schema struct {
	Name        string
	Description string
	Properties  map[string]interface{}
	Required    []string
}

// JSONSchema renders the schema as a full JSON Schema object.
func (s Schema) JSONSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": s.Properties,
		"required":   s.Required,
	}
}

// Sampling holds the generation parameters for one attempt.
type Sampling struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

// DefaultSampling returns the sampling used by mark and goods/services assessments.
func DefaultSampling() Sampling {
	return Sampling{
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		TopK:        DefaultTopK,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Request is a single structured generation request. It is a value: the
// client copies it per attempt, so callers may reuse it.
type Request struct {
	Prompt   string
	Schema   Schema
	Sampling Sampling
	// Context is a short label such as "[Mark Assessment 1a2b3c4d]" carried
	// through logs and the call ledger.
	Context string
}

// Response is what a provider produced for one attempt. Content is the raw
// JSON of the structured output and is empty when the model returned nothing
// usable.
type Response struct {
	Content  []byte
	Provider string
	Model    string
}

// Generator is the interface for LLM providers that can produce structured
// output. Both Anthropic (Claude) and OpenAI implement it, and Chain composes
// several of them into an ordered fallback.
//
// Implementations hold one long-lived SDK client and must be safe for
// concurrent use: the batch orchestrator calls Generate from several
// goroutines at once, and each call carries all of its own state.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ProviderName() string
	ModelName() string
}
