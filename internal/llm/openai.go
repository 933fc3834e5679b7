package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements Generator using OpenAI function calling. The
// requested schema becomes the parameters of a single function that the
// model is forced to call.
//
// openai.Client wraps an http.Client and is safe for concurrent use.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates an OpenAI-backed generator.
func NewOpenAIGenerator(apiKey string, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *OpenAIGenerator) ProviderName() string { return "openai" }
func (o *OpenAIGenerator) ModelName() string     { return o.model }

const openAISystemPrompt = `You are a trademark law assistant. Always answer by calling the provided function with arguments that match its schema exactly.`

func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Parameters:  req.Schema.JSONSchema(),
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Tools: tools,
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.Schema.Name},
		},
		Temperature:         float32(req.Sampling.Temperature),
		TopP:                float32(req.Sampling.TopP),
		MaxCompletionTokens: req.Sampling.MaxTokens,
	})
	if err != nil {
		return nil, o.classify(err)
	}

	out := &Response{Provider: o.ProviderName(), Model: o.model}
	if len(resp.Choices) == 0 {
		return out, nil
	}
	for _, toolCall := range resp.Choices[0].Message.ToolCalls {
		if toolCall.Function.Name == req.Schema.Name {
			out.Content = []byte(toolCall.Function.Arguments)
			break
		}
	}
	return out, nil
}

func (o *OpenAIGenerator) classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return NewServiceError(o.ProviderName(), status, err)
}
