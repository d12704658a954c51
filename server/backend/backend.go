// Package backend implements the generation backends of the model server.
// One backend is chosen at startup and used for the life of the process.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nanocode-local/nanocode/config"
	"github.com/nanocode-local/nanocode/server/tokenizer"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Kind names a backend variant.
type Kind string

const (
	KindMock     Kind = config.BackendMock
	KindOpenAI   Kind = config.BackendOpenAI
	KindLlamaCpp Kind = config.BackendLlamaCpp
	KindVLLM     Kind = config.BackendVLLM
)

// ParseKind accepts a backend name in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMock, KindOpenAI, KindLlamaCpp, KindVLLM:
		return k, nil
	default:
		return "", fmt.Errorf("unknown model backend: %q", s)
	}
}

// Result is what a backend produced for one prompt.
type Result struct {
	Output   string
	Metadata map[string]interface{}

	// Usage is set by backends that count tokens.
	Usage *Usage
}

// Usage reports token counts for one generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Estimated marks counts made locally because the provider sent none.
	// Estimated usage feeds metrics but is never returned to clients.
	Estimated bool `json:"-"`
}

// Backend generates text for a rendered prompt.
type Backend interface {
	Kind() Kind

	// Name is the human readable backend name used in error details.
	Name() string

	Generate(ctx context.Context, prompt string) (Result, error)
}

// ErrNotImplemented is matched by errors from placeholder backends.
var ErrNotImplemented = errors.New("backend not implemented")

type notImplementedError struct {
	name string
}

func (e *notImplementedError) Error() string {
	return e.name + " backend not implemented"
}

func (e *notImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// BackendError wraps a failure raised while generating.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// New builds the backend selected by cfg.Backend.
func New(cfg *config.ModelServerConfig, logger *zap.Logger) (Backend, error) {
	kind, err := ParseKind(cfg.Backend)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindMock:
		return Mock{}, nil
	case KindLlamaCpp:
		return LlamaCpp{}, nil
	case KindVLLM:
		return VLLM{}, nil
	}

	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the %s backend", KindOpenAI)
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.OpenAI.Timeout}

	return NewOpenAI(OpenAIConfig{
		Client:       openai.NewClientWithConfig(clientConfig),
		Model:        cfg.OpenAI.Model,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
		Counter:      tokenizer.New(cfg.OpenAI.Model, logger),
		Logger:       logger,
	}), nil
}
