package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectConcreteChallenge(t *testing.T) {
	assert.True(t, DetectConcreteChallenge("I'm struggling with my sleep schedule"))
	assert.True(t, DetectConcreteChallenge("My boss keeps piling work on me"))
	assert.True(t, DetectConcreteChallenge("I can't stop checking my phone at night"))
	assert.True(t, DetectConcreteChallenge("I've been avoiding my thesis for weeks"))
	assert.False(t, DetectConcreteChallenge("Hi there"))
	assert.False(t, DetectConcreteChallenge("I don't know, just meh"))
}

func TestDetectReflectiveLanguage(t *testing.T) {
	assert.True(t, DetectReflectiveLanguage("It sounds like the deadlines are wearing you down."))
	assert.True(t, DetectReflectiveLanguage("I hear how exhausting that has been."))
	assert.True(t, DetectReflectiveLanguage("That must feel really isolating."))
	assert.False(t, DetectReflectiveLanguage("Have you tried making a to-do list?"))
}

func TestDetectEmotionalRegulation(t *testing.T) {
	tests := []struct {
		message   string
		regulated bool
	}{
		{"I've been thinking about this calmly and want to work on it.", true},
		{"Why does this keep happening?!?", false},
		{"I AM SO DONE WITH THIS", false},
		{"I'm panicking and I can't breathe", false},
		{"I feel OK about it, just tired", true},
		{"I'm freaking out", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.regulated, DetectEmotionalRegulation(tt.message))
		})
	}
}

func TestDetectStructureExplanation(t *testing.T) {
	assert.True(t, DetectStructureExplanation("A structured exercise could give this some shape."))
	assert.True(t, DetectStructureExplanation("There's a technique that might help with racing thoughts."))
	assert.True(t, DetectStructureExplanation("We could go step by step."))
	assert.False(t, DetectStructureExplanation("Tell me more about that."))
}

func TestDetectDeclineInMessage(t *testing.T) {
	tests := []struct {
		message  string
		declined bool
	}{
		{"no", true},
		{"Nah, not really", true},
		{"not right now, thanks", true},
		{"I'd rather not", true},
		{"maybe later", true},
		{"sure, let's try it", false},
		{"I know what you mean", false},
		{"nothing comes to mind", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.declined, DetectDeclineInMessage(tt.message))
		})
	}
}
