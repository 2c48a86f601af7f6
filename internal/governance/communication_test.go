package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectContextMetadataHintsOverrideKeywords(t *testing.T) {
	ctx, score := DetectContext("hey what's up", MetadataHints{SystemCall: true})
	assert.Equal(t, ContextSystem, ctx)
	assert.Equal(t, 1.0, score)

	ctx, score = DetectContext("anything at all", MetadataHints{Role: "executive"})
	assert.Equal(t, ContextExecutive, ctx)
	assert.Equal(t, 1.0, score)
}

func TestDetectContextKeywordScoring(t *testing.T) {
	cases := map[string]Context{
		"hey lol wanna hang out":                ContextCasual,
		"kindly advise regarding the contract":   ContextBusiness,
		"got a stack trace from the compile":     ContextTechnical,
		"the board wants quarterly roi strategy": ContextExecutive,
		"this is broken, help me fix the issue":  ContextSupport,
		"can you explain how does this work":     ContextLearning,
		"write a short poem for me":              ContextCreative,
		"found a cve being actively exploited":   ContextSecurity,
		"what does the literature say, hypothesis": ContextResearch,
	}
	for input, want := range cases {
		got, score := DetectContext(input, MetadataHints{})
		assert.Equal(t, want, got, "input=%q", input)
		assert.Greater(t, score, 0.0)
	}
}

func TestDetectContextNoKeywordHitsReturnsZeroConfidence(t *testing.T) {
	_, score := DetectContext("xyz qwerty zzz", MetadataHints{})
	assert.Equal(t, 0.0, score)
}

func TestResolveProfileFallsBackToLastSeenBelowConfidenceThreshold(t *testing.T) {
	last := &Profile{Context: ContextTechnical, Formality: 0.9}
	p := ResolveProfile(ContextCasual, 0.1, last)
	assert.Equal(t, ContextTechnical, p.Context)
	assert.Equal(t, 0.7, p.Confidence)
	assert.Equal(t, 0.9, p.Formality)
}

func TestResolveProfileUsesDetectedWhenConfident(t *testing.T) {
	p := ResolveProfile(ContextExecutive, 0.8, nil)
	assert.Equal(t, ContextExecutive, p.Context)
	assert.Equal(t, 0.8, p.Confidence)
	assert.Equal(t, DefaultProfiles[ContextExecutive].Formality, p.Formality)
}

func TestSystemPromptReflectsAllDimensions(t *testing.T) {
	p := Profile{Formality: 0.9, Empathy: 0.9, TechnicalDepth: 0.9, Verbosity: 0.1, ConfidenceExpression: 0.9}
	prompt := SystemPrompt(p)
	assert.Contains(t, prompt, "formal")
	assert.Contains(t, prompt, "feelings")
	assert.Contains(t, prompt, "technical terminology")
	assert.Contains(t, prompt, "concise")
	assert.Contains(t, prompt, "confidently")
}

func TestPostEditExpandsContractionsWhenFormal(t *testing.T) {
	out, _ := PostEdit("I can't do that, it's fine", Profile{Formality: 0.9})
	assert.Contains(t, out, "cannot")
	assert.Contains(t, out, "it is")
}

func TestPostEditAddsFriendlyCloserWhenCasual(t *testing.T) {
	out, _ := PostEdit("Here is the answer.", Profile{Formality: 0.1})
	assert.Contains(t, out, "Hope that helps!")
}

func TestPostEditPrependsEmpathyWhenHighEmpathyAndAbsent(t *testing.T) {
	out, _ := PostEdit("It will be fixed soon.", Profile{Empathy: 0.9})
	assert.Contains(t, out, "I understand")
}

func TestPostEditTruncatesWhenLowVerbosity(t *testing.T) {
	long := "one\ntwo\nthree\nfour\nfive\nsix"
	out, _ := PostEdit(long, Profile{Verbosity: 0.1})
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, "five")
}

func TestPostEditRetainsFullUntruncatedText(t *testing.T) {
	long := "one\ntwo\nthree\nfour\nfive\nsix"
	truncated, full := PostEdit(long, Profile{Verbosity: 0.1})
	assert.NotContains(t, truncated, "five")
	assert.Contains(t, full, "five")
	assert.Contains(t, full, "six")
}

func TestApplyFeedbackAdjustsAndClamps(t *testing.T) {
	p := Profile{Formality: 0.9, Empathy: 0.1}

	p2 := ApplyFeedback(p, FeedbackTooFormal)
	assert.InDelta(t, 0.72, p2.Formality, 0.001)

	p3 := ApplyFeedback(Profile{Formality: 1.0}, FeedbackTooCasual)
	assert.Equal(t, 1.0, p3.Formality)

	p4 := ApplyFeedback(p, FeedbackNotEmpathetic)
	assert.InDelta(t, 0.12, p4.Empathy, 0.001)

	p5 := ApplyFeedback(Profile{Empathy: 0.0}, FeedbackTooEmpathetic)
	assert.Equal(t, 0.0, p5.Empathy)
}

func TestClamp01Bounds(t *testing.T) {
	require.Equal(t, 0.0, clamp01(-1))
	require.Equal(t, 1.0, clamp01(2))
	require.Equal(t, 0.5, clamp01(0.5))
}
