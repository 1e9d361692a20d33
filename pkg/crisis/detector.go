// Package crisis classifies user messages by risk of self-harm or harm to others.
package crisis

import (
	"regexp"
	"strings"
)

// Severity is the risk level assigned to a message.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Action is what the caller should do with the conversation.
type Action string

const (
	ActionContinue    Action = "continue"
	ActionGentleCheck Action = "gentle_check"
	ActionSafetyCheck Action = "safety_check"
	ActionCrisisMode  Action = "crisis_mode"
)

// Result is the outcome of classifying one message.
type Result struct {
	Severity          Severity `json:"severity"`
	RecommendedAction Action   `json:"recommended_action"`
	Triggers          []string `json:"triggers,omitempty"`
	IsCrisis          bool     `json:"is_crisis"`
}

type tier struct {
	severity Severity
	patterns []*regexp.Regexp
}

// Detector is a pure, ordered-tier pattern classifier. Safe for concurrent use.
type Detector struct {
	tiers []tier
}

// NewDetector creates a detector with the default tiers.
func NewDetector() *Detector {
	return &Detector{tiers: compileDefaultTiers()}
}

// compileDefaultTiers returns the tiers in evaluation order, most severe first.
func compileDefaultTiers() []tier {
	raw := []struct {
		severity Severity
		patterns []string
	}{
		{SeverityCritical, []string{
			`\bkill(ing)? my ?self\b`,
			`\bend(ing)? my (own )?life\b`,
			`\b(commit|committing) suicide\b`,
			`\bsuicid(e|al) (plan|note)\b`,
			`\bi (have|got) (a|the) (plan|pills|gun|rope)\b`,
			`\btonight i('m| am) going to (die|end it)\b`,
			`\bgoing to kill (him|her|them|someone)\b`,
			`\boverdos(e|ing) on\b`,
		}},
		{SeverityHigh, []string{
			`\bwant(ed)? to die\b`,
			`\bwish i (was|were) dead\b`,
			`\bsuicid(e|al)\b`,
			`\bself[- ]?harm(ing)?\b`,
			`\bcut(ting)? myself\b`,
			`\bhurt(ing)? myself\b`,
			`\bbetter off (dead|without me)\b`,
			`\bno reason to live\b`,
			`\bend it all\b`,
			`\bdon'?t want to (be alive|live|wake up)\b`,
		}},
		{SeverityMedium, []string{
			`\bhopeless\b`,
			`\bcan'?t go on\b`,
			`\bcan'?t take (it|this) anymore\b`,
			`\bno way out\b`,
			`\btrapped\b`,
			`\bworthless\b`,
			`\bnobody would (care|notice)\b`,
			`\bburden to (everyone|everybody|my family)\b`,
			`\bgive up on everything\b`,
		}},
		{SeverityLow, []string{
			`\boverwhelmed\b`,
			`\bexhausted\b`,
			`\bfalling apart\b`,
			`\bcan'?t cope\b`,
			`\bbreaking down\b`,
			`\bso alone\b`,
			`\bempty inside\b`,
			`\bstruggling\b`,
		}},
	}

	tiers := make([]tier, 0, len(raw))
	for _, r := range raw {
		compiled := make([]*regexp.Regexp, 0, len(r.patterns))
		for _, p := range r.patterns {
			compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
		}
		tiers = append(tiers, tier{severity: r.severity, patterns: compiled})
	}
	return tiers
}

// Detect classifies message. The first tier with any match wins and every
// match within that tier is reported as a trigger.
func (d *Detector) Detect(message string) Result {
	normalized := normalize(message)
	for _, t := range d.tiers {
		var triggers []string
		for _, re := range t.patterns {
			if m := re.FindString(normalized); m != "" {
				triggers = append(triggers, strings.ToLower(m))
			}
		}
		if len(triggers) > 0 {
			return Result{
				IsCrisis:          t.severity == SeverityHigh || t.severity == SeverityCritical,
				Severity:          t.severity,
				Triggers:          triggers,
				RecommendedAction: ActionFor(t.severity),
			}
		}
	}
	return Result{Severity: SeverityNone, RecommendedAction: ActionContinue}
}

// ActionFor maps a severity onto the recommended action.
func ActionFor(s Severity) Action {
	switch s {
	case SeverityCritical, SeverityHigh:
		return ActionCrisisMode
	case SeverityMedium:
		return ActionSafetyCheck
	case SeverityLow:
		return ActionGentleCheck
	default:
		return ActionContinue
	}
}

// normalize folds curly apostrophes and collapses whitespace.
func normalize(message string) string {
	message = strings.NewReplacer("’", "'", "‘", "'").Replace(message)
	return strings.Join(strings.Fields(message), " ")
}
