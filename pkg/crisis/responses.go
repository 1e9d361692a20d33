package crisis

const criticalResponse = `I'm really glad you told me, and I'm taking what you said seriously. Your safety matters more than anything else right now.

Please reach out for immediate support:
- Call or text 988 (Suicide & Crisis Lifeline, 24/7, US)
- Text HOME to 741741 (Crisis Text Line)
- If you are in immediate danger, call 911 or go to the nearest emergency room

If you can, stay with someone you trust or move away from anything you could use to hurt yourself. I'm here with you, and you don't have to go through this alone.`

const highResponse = `Thank you for trusting me with something this painful. What you're feeling sounds really heavy, and you deserve support from someone who can be there in person right now.

Please consider reaching out:
- Call or text 988 (Suicide & Crisis Lifeline, 24/7, US)
- Text HOME to 741741 (Crisis Text Line)
- If you feel you might act on these thoughts, call 911

Are you safe right now?`

const mediumResponse = `It sounds like things feel really hard right now, and I want to make sure you're okay. If these feelings ever turn into thoughts of hurting yourself, you can call or text 988 any time, or call 911 in an emergency.

Would you like to tell me more about what's been weighing on you?`

const lowResponse = `That sounds like a lot to carry. I'm here, and we can take this at whatever pace feels right for you. How are you doing in this moment?`

// ResponseFor returns the fixed, reviewed response for a severity. It is never model-generated.
func ResponseFor(s Severity) string {
	switch s {
	case SeverityCritical:
		return criticalResponse
	case SeverityHigh:
		return highResponse
	case SeverityMedium:
		return mediumResponse
	case SeverityLow:
		return lowResponse
	default:
		return ""
	}
}
