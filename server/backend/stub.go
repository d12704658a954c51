package backend

import "context"

// LlamaCpp is a placeholder for a local llama.cpp backend.
type LlamaCpp struct{}

func (LlamaCpp) Kind() Kind   { return KindLlamaCpp }
func (LlamaCpp) Name() string { return "llama.cpp" }

func (b LlamaCpp) Generate(context.Context, string) (Result, error) {
	return Result{}, &notImplementedError{name: b.Name()}
}

// VLLM is a placeholder for a vLLM backend.
type VLLM struct{}

func (VLLM) Kind() Kind   { return KindVLLM }
func (VLLM) Name() string { return "vLLM" }

func (b VLLM) Generate(context.Context, string) (Result, error) {
	return Result{}, &notImplementedError{name: b.Name()}
}
