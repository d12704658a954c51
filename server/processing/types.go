// Package processing turns generation requests into prompts and model
// server replies into generation responses. Everything here is pure: no
// I/O, no shared state beyond compiled templates and the validator.
package processing

// GenerationRequest is the body of POST /nanocode.
//
// Input must contain at least one non-whitespace character. Constraints are
// optional and keep their order when rendered.
type GenerationRequest struct {
	Input       string   `json:"input" validate:"notblank"`
	Constraints []string `json:"constraints,omitempty"`
}

// GenerationResponse is returned to API clients. Metadata is always
// present and is never nil once built by Normalize.
type GenerationResponse struct {
	Input    string                 `json:"input"`
	Output   string                 `json:"output"`
	Metadata map[string]interface{} `json:"metadata"`
}

// MetadataPromptKey is the metadata entry that carries the rendered prompt.
const MetadataPromptKey = "prompt"
