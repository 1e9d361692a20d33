package controller

import (
	"solace/pkg/conversation"
	"solace/pkg/crisis"
)

// Fixed replies that never go through the model.
const (
	exitMessage = "Of course, we can stop the exercise here. There is no right or wrong way to do this, " +
		"and stopping is completely okay. What would feel most helpful to talk about right now?"

	closingMessage = "Thank you for sharing that reflection. You worked through every step of the exercise, " +
		"and noticing what shifted for you is a real part of the practice. How are you feeling as we wrap up?"

	fallbackMessage = "I'm sorry, I'm having trouble finding my words right now. " +
		"Could you give me a moment and share that with me again?"
)

//nolint:gochecknoglobals // read-only table
var stateInstructions = map[conversation.State]string{
	conversation.StateInit: "This is the start of the conversation. Greet the user warmly and briefly, " +
		"let them know this is a space to talk about whatever is on their mind, and invite them to share.",
	conversation.StateConversationalDiscovery: "Get to know what is going on for the user. Ask open questions, " +
		"follow their lead and do not push an agenda. Do not suggest exercises yet.",
	conversation.StateSupportiveProcessing: "Validate and contain what the user is feeling. Reflect their experience " +
		"back in your own words. Do not offer solutions or advice. If a structured exercise would clearly help, you may " +
		"explain how a guided step-by-step exercise could support them and ask whether they would like that.",
	conversation.StateExerciseSuggestion: "Offer at most three exercise options. For each, name the framework it uses " +
		"and say in one sentence how it could help. Make it clear the user is free to choose any of them or none at all.",
	conversation.StateExerciseFacilitation: "Follow the exercise phases exactly as described. Ask one question at a time " +
		"and wait for the user's answer.",
	conversation.StatePostExerciseIntegration: "Help the user make sense of the exercise they just finished. Summarize " +
		"the insight they shared in their own words and, only if it fits, offer one small optional next step.",
	conversation.StateCrisisMode: "The user recently expressed thoughts of harm. Stay calm, grounded and present. " +
		"Put their safety first, repeat that 988 and 911 are available, and do not suggest any exercises.",
}

// instructionFor returns the guidance for state plus any safety check the crisis detector asked for.
func instructionFor(state conversation.State, action crisis.Action) string {
	text := stateInstructions[state]
	switch action {
	case crisis.ActionSafetyCheck:
		text += "\n\nThe user's last message showed signs of serious distress. Before anything else, gently ask " +
			"whether they are safe, and mention that they can call or text 988 at any time."
	case crisis.ActionGentleCheck:
		text += "\n\nThe user sounds weighed down. Check in softly on how they are doing right now."
	}
	return text
}

// searchAllowed reports whether the exercise search tool is offered in state.
func searchAllowed(state conversation.State) bool {
	switch state {
	case conversation.StateConversationalDiscovery,
		conversation.StateSupportiveProcessing,
		conversation.StateExerciseSuggestion:
		return true
	default:
		return false
	}
}
