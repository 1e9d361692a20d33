package exercise

import (
	"fmt"

	"solace/pkg/logx"
	"solace/pkg/templates"
)

// BuildPrompt renders the facilitation instructions for the current phase.
func BuildPrompt(c *Context) string {
	data := &templates.TemplateData{
		ExerciseTitle:        c.Exercise.Title,
		ExerciseFocus:        c.Exercise.Prompt,
		FrameworkName:        c.Framework.Name,
		FrameworkDescription: c.Framework.Description,
		CoreMechanism:        c.Framework.CoreMechanism,
		Phases:               make([]templates.PhaseLine, 0, len(c.Framework.Phases)),
	}
	for i, p := range c.Framework.Phases {
		mark := templates.MarkUpcoming
		switch {
		case i < c.CurrentPhase:
			mark = templates.MarkCompleted
		case i == c.CurrentPhase:
			mark = templates.MarkCurrent
		}
		data.Phases = append(data.Phases, templates.PhaseLine{Mark: mark, Name: p.Name})
	}
	if p := c.Phase(); p != nil {
		data.Current = templates.PhaseDetail{
			Name:       p.Name,
			AIRole:     p.AIRole,
			UserAction: p.UserAction,
			Processing: p.Processing,
			Number:     c.CurrentPhase + 1,
			Total:      c.TotalPhases,
		}
	}

	prompt, err := templates.Render(templates.FacilitationTemplate, data)
	if err != nil {
		logx.NewLogger("exercise").Error("render facilitation prompt: %v", err)
		return fmt.Sprintf("Guide the user through the exercise %q one question at a time. %s", c.Exercise.Title, c.Exercise.Prompt)
	}
	return prompt
}
