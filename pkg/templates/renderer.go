// Package templates renders the prompt blocks sent to the language model.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// PromptTemplate names an embedded template file.
type PromptTemplate string

const (
	// SystemTemplate is the platform prompt plus what we know about the user.
	SystemTemplate PromptTemplate = "system.tpl.md"
	// FacilitationTemplate guides the model through one phase of an exercise.
	FacilitationTemplate PromptTemplate = "facilitation.tpl.md"
)

// Phase progress markers.
const (
	MarkCompleted = "✓"
	MarkCurrent   = "→"
	MarkUpcoming  = "○"
)

// PhaseLine is one row of the phase checklist.
type PhaseLine struct {
	Mark string
	Name string
}

// PhaseDetail is the phase the user is working through right now.
type PhaseDetail struct {
	Name       string
	AIRole     string
	UserAction string
	Processing string
	Number     int
	Total      int
}

// TemplateData holds everything a prompt template may reference.
type TemplateData struct {
	// User profile
	DisplayName        string
	Goals              string
	Notes              string
	ExercisesCompleted int

	// Exercise facilitation
	ExerciseTitle        string
	ExerciseFocus        string
	FrameworkName        string
	FrameworkDescription string
	CoreMechanism        string
	Phases               []PhaseLine
	Current              PhaseDetail
}

// Renderer holds the parsed templates.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[PromptTemplate]*template.Template),
	}

	for _, name := range []PromptTemplate{SystemTemplate, FacilitationTemplate} {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Funcs(template.FuncMap{
			"trim": strings.TrimSpace,
		}).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	return r, nil
}

// Render executes a template with data.
func (r *Renderer) Render(name PromptTemplate, data *TemplateData) (string, error) {
	tmpl, exists := r.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

//nolint:gochecknoglobals // parsed once from embedded files
var defaultRenderer = sync.OnceValues(NewRenderer)

// Render executes a template with the shared renderer.
func Render(name PromptTemplate, data *TemplateData) (string, error) {
	r, err := defaultRenderer()
	if err != nil {
		return "", err
	}
	return r.Render(name, data)
}
