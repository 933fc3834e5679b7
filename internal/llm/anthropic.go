package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicGenerator implements Generator using Claude with a forced tool call.
// We define one tool whose input schema is the requested output schema and
// make Claude call it, so the tool input is our structured result.
//
// The SDK client is created once and shared; it is safe for concurrent use.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGenerator creates a Claude-backed generator.
func NewAnthropicGenerator(apiKey string, model string) *AnthropicGenerator {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retries are owned by StructuredClient
	)
	return &AnthropicGenerator{
		client: &client,
		model:  model,
	}
}

func (a *AnthropicGenerator) ProviderName() string { return "anthropic" }
func (a *AnthropicGenerator) ModelName() string     { return a.model }

func (a *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	tool := anthropic.ToolParam{
		Name:        req.Schema.Name,
		Description: param.NewOpt(req.Schema.Description),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: req.Schema.Properties,
			Required:   req.Schema.Required,
		},
	}

	// Newer Claude models reject temperature and top_p together, so only
	// temperature and top_k are sent.
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.Sampling.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.Schema.Name},
		},
		Temperature: anthropic.Float(req.Sampling.Temperature),
		TopK:        anthropic.Int(int64(req.Sampling.TopK)),
	})
	if err != nil {
		return nil, a.classify(err)
	}

	resp := &Response{Provider: a.ProviderName(), Model: a.model}
	for _, block := range message.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || toolUse.Name != req.Schema.Name {
			continue
		}
		content, err := json.Marshal(toolUse.Input)
		if err != nil {
			return nil, fmt.Errorf("marshaling tool input: %w", err)
		}
		resp.Content = content
		break
	}
	return resp, nil
}

func (a *AnthropicGenerator) classify(err error) error {
	status := 0
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return NewServiceError(a.ProviderName(), status, err)
}
