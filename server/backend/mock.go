package backend

import "context"

// Mock echoes the prompt back. It needs no configuration.
type Mock struct{}

func (Mock) Kind() Kind   { return KindMock }
func (Mock) Name() string { return "mock" }

// Generate returns "Echo: " + prompt.
func (Mock) Generate(_ context.Context, prompt string) (Result, error) {
	return Result{
		Output:   "Echo: " + prompt,
		Metadata: map[string]interface{}{"backend": string(KindMock)},
	}, nil
}
