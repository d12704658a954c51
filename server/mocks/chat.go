// Package mocks provides test doubles shared across packages.
package mocks

import (
	"context"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is a chat completions client that never touches the network.
// It records every request so tests can assert on the messages sent.
type ChatClient struct {
	CompleteFunc func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

// NewChatClient returns a ChatClient answering with fn.
func NewChatClient(fn func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)) *ChatClient {
	return &ChatClient{CompleteFunc: fn}
}

// Reply returns a ChatClient that always answers with content and the
// given usage.
func Reply(content string, usage openai.Usage) *ChatClient {
	return NewChatClient(func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:   0,
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			}},
			Usage: usage,
		}, nil
	})
}

// CreateChatCompletion records req and delegates to CompleteFunc.
func (c *ChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.CompleteFunc == nil {
		return openai.ChatCompletionResponse{}, nil
	}
	return c.CompleteFunc(ctx, req)
}

// Requests returns a copy of the recorded requests.
func (c *ChatClient) Requests() []openai.ChatCompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]openai.ChatCompletionRequest, len(c.requests))
	copy(out, c.requests)
	return out
}
