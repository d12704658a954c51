package backend

import (
	"context"
	"errors"
	"time"

	"github.com/nanocode-local/nanocode/config"
	"github.com/nanocode-local/nanocode/server/tokenizer"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNoChoices is returned when the provider answers without any choice.
var ErrNoChoices = errors.New("provider returned no choices")

// ChatClient is the part of the OpenAI client the backend needs.
// *openai.Client implements it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	Client       ChatClient
	Model        string
	SystemPrompt string

	// Counter estimates usage when the provider reports none. Defaults to
	// whitespace counting.
	Counter tokenizer.Counter

	Logger *zap.Logger
}

// OpenAI sends prompts to an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client       ChatClient
	model        string
	systemPrompt string
	counter      tokenizer.Counter
	logger       *zap.Logger
}

// NewOpenAI creates the backend around an already configured client.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	o := &OpenAI{
		client:       cfg.Client,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		counter:      cfg.Counter,
		logger:       cfg.Logger,
	}
	if o.systemPrompt == "" {
		o.systemPrompt = config.DefaultSystemPrompt
	}
	if o.counter == nil {
		o.counter = tokenizer.Whitespace{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func (o *OpenAI) Kind() Kind   { return KindOpenAI }
func (o *OpenAI) Name() string { return "OpenAI" }

// Generate sends the system instruction and the prompt as a two message
// chat and makes exactly one provider call.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (Result, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err == nil && len(resp.Choices) == 0 {
		err = ErrNoChoices
	}
	if err != nil {
		o.logger.Error("provider generation failed",
			zap.String("model", o.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return Result{}, &BackendError{Backend: o.Name(), Err: err}
	}

	output := resp.Choices[0].Message.Content
	metadata := map[string]interface{}{
		"prompt": prompt,
		"model":  o.model,
	}

	var usage *Usage
	if reported := resp.Usage; reported.TotalTokens > 0 || reported.PromptTokens > 0 || reported.CompletionTokens > 0 {
		usage = &Usage{
			PromptTokens:     reported.PromptTokens,
			CompletionTokens: reported.CompletionTokens,
			TotalTokens:      reported.TotalTokens,
		}
		metadata["usage"] = usage
	} else {
		usage = &Usage{
			PromptTokens:     o.counter.Count(o.systemPrompt) + o.counter.Count(prompt),
			CompletionTokens: o.counter.Count(output),
			Estimated:        true,
		}
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	o.logger.Debug("provider generation completed",
		zap.String("model", o.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Bool("usage_estimated", usage.Estimated),
	)

	return Result{
		Output:   output,
		Metadata: metadata,
		Usage:    usage,
	}, nil
}
