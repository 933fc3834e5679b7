// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/fleveque/trademark-service/internal/llm"
)

// Reply is one scripted answer: raw content or an error.
type Reply struct {
	Content string
	Err     error
}

// Generator is a call-counting test double. Replies are consumed in order;
// once exhausted, the last reply repeats. Func, when set, takes precedence
// and lets a test answer based on the request.
type Generator struct {
	Provider string
	Model    string
	Replies  []Reply
	Func     func(ctx context.Context, req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

// NewGenerator returns a Generator that answers with replies in order.
func NewGenerator(replies ...Reply) *Generator {
	return &Generator{Provider: "fake", Model: "fake-model", Replies: replies}
}

// JSON is a convenience for a successful reply.
func JSON(content string) Reply { return Reply{Content: content} }

// Fail is a convenience for an error reply.
func Fail(err error) Reply { return Reply{Err: err} }

func (g *Generator) ProviderName() string { return g.Provider }
func (g *Generator) ModelName() string     { return g.Model }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	n := len(g.requests)
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	var content string
	var err error
	switch {
	case g.Func != nil:
		content, err = g.Func(ctx, req)
	case len(g.Replies) == 0:
		content = ""
	default:
		r := g.Replies[min(n, len(g.Replies)-1)]
		content, err = r.Content, r.Err
	}
	if err != nil {
		return nil, err
	}
	return &llm.Response{Content: []byte(content), Provider: g.Provider, Model: g.Model}, nil
}

// Calls returns how many times Generate was invoked.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Requests returns a copy of every request received, in call order.
func (g *Generator) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]llm.Request, len(g.requests))
	copy(out, g.requests)
	return out
}
