package crisis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTiers(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name     string
		message  string
		severity Severity
		action   Action
		isCrisis bool
	}{
		{"critical", "I'm going to kill myself tonight", SeverityCritical, ActionCrisisMode, true},
		{"high", "Sometimes I just want to die", SeverityHigh, ActionCrisisMode, true},
		{"medium", "Everything feels hopeless lately", SeverityMedium, ActionSafetyCheck, false},
		{"low", "Work has me so overwhelmed", SeverityLow, ActionGentleCheck, false},
		{"none", "I had a nice walk today", SeverityNone, ActionContinue, false},
		{"case insensitive", "I WANT TO DIE", SeverityHigh, ActionCrisisMode, true},
		{"curly apostrophe", "I can’t go on like this", SeverityMedium, ActionSafetyCheck, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.Detect(tt.message)
			assert.Equal(t, tt.severity, r.Severity)
			assert.Equal(t, tt.action, r.RecommendedAction)
			assert.Equal(t, tt.isCrisis, r.IsCrisis)
		})
	}
}

func TestCriticalDominatesLowerTiers(t *testing.T) {
	d := NewDetector()

	r := d.Detect("I feel hopeless and overwhelmed and I want to kill myself")
	assert.Equal(t, SeverityCritical, r.Severity)
	assert.True(t, r.IsCrisis)
	require.NotEmpty(t, r.Triggers)
	assert.NotContains(t, r.Triggers, "hopeless")
	assert.NotContains(t, r.Triggers, "overwhelmed")
}

func TestAllTriggersInWinningTierRecorded(t *testing.T) {
	r := NewDetector().Detect("I feel hopeless and worthless")
	assert.Equal(t, SeverityMedium, r.Severity)
	assert.ElementsMatch(t, []string{"hopeless", "worthless"}, r.Triggers)
}

func TestWordBoundaries(t *testing.T) {
	r := NewDetector().Detect("the entrapped miner was rescued")
	assert.Equal(t, SeverityNone, r.Severity)
}

func TestResponseFor(t *testing.T) {
	for _, s := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium} {
		text := ResponseFor(s)
		assert.Contains(t, text, "988", "severity %s", s)
		assert.Contains(t, text, "911", "severity %s", s)
	}
	low := ResponseFor(SeverityLow)
	assert.NotEmpty(t, low)
	assert.NotContains(t, low, "988")
	assert.Empty(t, ResponseFor(SeverityNone))
}
