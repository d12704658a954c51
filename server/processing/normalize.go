package processing

import "fmt"

// Normalize shapes a raw model server reply into a GenerationResponse.
//
//   - Output is raw["output"]; absent or null gives "", non-string values
//     are formatted with fmt.Sprint.
//   - Metadata is raw["metadata"] when it is a JSON object, otherwise {}.
//   - Metadata["prompt"] is set to prompt unless the reply already has it.
//   - Input is copied from req.
//
// raw is never modified; a nil raw is treated as {}.
func Normalize(req GenerationRequest, prompt string, raw map[string]interface{}) GenerationResponse {
	output := ""
	switch v := raw["output"].(type) {
	case nil:
	case string:
		output = v
	default:
		output = fmt.Sprint(v)
	}

	metadata := make(map[string]interface{})
	if m, ok := raw["metadata"].(map[string]interface{}); ok {
		for k, v := range m {
			metadata[k] = v
		}
	}
	if _, ok := metadata[MetadataPromptKey]; !ok {
		metadata[MetadataPromptKey] = prompt
	}

	return GenerationResponse{
		Input:    req.Input,
		Output:   output,
		Metadata: metadata,
	}
}
