package processing

import (
	"fmt"
	"strings"
	"text/template"
)

// promptTemplate renders the prompt sent to the model server. The
// constraints line is present only when there is at least one constraint.
const promptTemplate = `{{.System}}
User request: {{.Input}}{{if .Constraints}}
Constraints: {{join .Constraints ", "}}{{end}}`

// Processor renders prompts from a pre-compiled template. It is safe for
// concurrent use.
type Processor struct {
	tmpl         *template.Template
	systemPrompt string
}

type promptData struct {
	System      string
	Input       string
	Constraints []string
}

// NewProcessor compiles the prompt template with the given system
// instruction line, failing fast on an unusable configuration.
func NewProcessor(systemPrompt string) (*Processor, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	if strings.Contains(systemPrompt, "\n") {
		return nil, fmt.Errorf("system prompt must be a single line")
	}

	tmpl, err := template.New("prompt").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	return &Processor{tmpl: tmpl, systemPrompt: systemPrompt}, nil
}

// SystemPrompt returns the instruction line every prompt starts with.
func (p *Processor) SystemPrompt() string {
	return p.systemPrompt
}

// Render builds the prompt for req:
//
//	<system prompt>
//	User request: <input>
//	Constraints: <c1>, <c2>     (only when constraints is non-empty)
//
// The output depends only on req and the system prompt.
func (p *Processor) Render(req GenerationRequest) (string, error) {
	var buf strings.Builder
	err := p.tmpl.Execute(&buf, promptData{
		System:      p.systemPrompt,
		Input:       req.Input,
		Constraints: req.Constraints,
	})
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}
