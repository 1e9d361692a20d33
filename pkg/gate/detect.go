package gate

import "regexp"

//nolint:gochecknoglobals // compiled once, read-only
var (
	challengePatterns = compileAll(
		`\bi('m| am) (struggling|dealing|having (a hard time|trouble|difficulty)|stuck|stressed) (with|about|at)\b`,
		`\bi (can'?t|cannot|keep failing to) (stop|sleep|focus|seem to|get|make|manage|handle)\b`,
		`\bmy (main |biggest |real )?(problem|issue|challenge|struggle) is\b`,
		`\b(problem|issue|conflict|fight|argument)s? (with|at|about) (my|work|school|home)\b`,
		`\bmy (boss|partner|wife|husband|girlfriend|boyfriend|mom|mother|dad|father|job|manager|roommate|kid|son|daughter)\b.*\b(keeps?|always|never|won'?t|doesn'?t)\b`,
		`\bevery time (i|my)\b`,
		`\bi('ve| have) been (avoiding|procrastinating|putting off|worrying about)\b`,
	)

	reflectivePatterns = compileAll(
		`\bit (sounds|seems|feels) like\b`,
		`\bi hear (that|you|how)\b`,
		`\bwhat i('m| am) hearing\b`,
		`\byou('re| are) (feeling|carrying|dealing with)\b`,
		`\bthat (must|would|could) (be|feel)\b`,
		`\bit makes (a lot of )?sense (that|you)\b`,
		`\bif i('m| am) understanding\b`,
	)

	structurePatterns = compileAll(
		`\b(structured|guided) (exercise|process|approach|activity|practice)\b`,
		`\bstep[- ]by[- ]step\b`,
		`\b(exercise|technique|framework|practice|tool) (that|which) (could|might|may|can) help\b`,
		`\bthere('s| is) an? (exercise|technique|practice|approach)\b`,
		`\bwalk (you )?through (a|an|some) (exercise|process|steps)\b`,
	)

	dysregulationPatterns = compileAll(
		`[!?]{2,}`,
		`\bpanic(king|ked)?\b`,
		`\bfreaking out\b`,
		`\bcan'?t (breathe|calm down|think straight)\b`,
		`\blosing my mind\b`,
		`\b(furious|enraged|livid|hysterical)\b`,
		`\bscreaming\b`,
		`\bshaking\b`,
	)

	declinePatterns = compileAll(
		`\bno\b`,
		`\bnah\b`,
		`\bnope\b`,
		`\bnot (right )?now\b`,
		`\bnot interested\b`,
		`\bi('d| would) rather not\b`,
		`\bdon'?t want to\b`,
		`\bmaybe later\b`,
		`\bskip (it|that|this)\b`,
		`\bi'?ll pass\b`,
	)

	// Three or more consecutive all-caps words.
	allCapsRun = regexp.MustCompile(`\b[A-Z]{2,}(?:\s+[A-Z]{2,}){2,}\b`)
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

// DetectConcreteChallenge reports whether a user message names a specific difficulty.
func DetectConcreteChallenge(message string) bool {
	return matchesAny(challengePatterns, message)
}

// DetectReflectiveLanguage reports whether an AI response reflects the user's experience back.
func DetectReflectiveLanguage(response string) bool {
	return matchesAny(reflectivePatterns, response)
}

// DetectEmotionalRegulation reports true when the message shows none of the dysregulation markers.
func DetectEmotionalRegulation(message string) bool {
	if allCapsRun.MatchString(message) {
		return false
	}
	return !matchesAny(dysregulationPatterns, message)
}

// DetectStructureExplanation reports whether an AI response explains that a structured process could help.
func DetectStructureExplanation(response string) bool {
	return matchesAny(structurePatterns, response)
}

// DetectDeclineInMessage reports whether a user message declines a suggestion.
func DetectDeclineInMessage(message string) bool {
	return matchesAny(declinePatterns, message)
}
