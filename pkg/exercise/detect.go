package exercise

import (
	"regexp"
	"strings"
)

// Default reflection thresholds.
const (
	DefaultReflectionMinChars = 50
	DefaultReflectionMinWords = 10
)

//nolint:gochecknoglobals // compiled once, read-only
var (
	exitPatterns = compileAll(
		`\b(stop|end|quit|exit|leave|cancel) (the|this) (exercise|activity|practice)\b`,
		`\bi( want| need| would like|'d like) to stop\b`,
		`\b(can|could) we (stop|quit|end)\b`,
		`\blet'?s stop\b`,
		`\bi don'?t want to (do|continue) (this|the exercise)( anymore)?\b`,
		`\b(no more|enough of) (this|the) exercise\b`,
		`^\s*(stop|quit|exit)\s*[.!]*\s*$`,
	)

	acceptancePatterns = compileAll(
		`^\s*(yes|yeah|yep|yup|sure|ok|okay|alright|absolutely|definitely)\b`,
		`\blet'?s (do|try|start|go with) (it|that|this|one|the)\b`,
		`\bi('d| would) (like|love) to (try|do|start)\b`,
		`\bi('ll| will) (try|give it a (try|go|shot))\b`,
		`\b(sounds|that sounds) (good|great|helpful|like a plan)\b`,
		`\b(the )?(first|second|third|1st|2nd|3rd) one\b`,
		`\bi('m| am) (in|up for it|willing)\b`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// DetectExit reports whether the user asked to stop the running exercise.
func DetectExit(message string) bool {
	return matchesAny(exitPatterns, message)
}

// DetectAcceptance reports whether the user agreed to try a suggested exercise.
func DetectAcceptance(message string) bool {
	return matchesAny(acceptancePatterns, message)
}

// ReflectionThresholds decide when a message is substantial enough to count as a reflection.
type ReflectionThresholds struct {
	MinChars int
	MinWords int
}

// DefaultReflectionThresholds returns the 50 character / 10 word defaults.
func DefaultReflectionThresholds() ReflectionThresholds {
	return ReflectionThresholds{MinChars: DefaultReflectionMinChars, MinWords: DefaultReflectionMinWords}
}

// Matches reports whether text meets both thresholds.
func (r ReflectionThresholds) Matches(text string) bool {
	trimmed := strings.TrimSpace(text)
	return len([]rune(trimmed)) >= r.MinChars && len(strings.Fields(trimmed)) >= r.MinWords
}

// DetectReflection applies the default thresholds. It is a length filter, not semantic analysis.
func DetectReflection(text string) bool {
	return DefaultReflectionThresholds().Matches(text)
}
