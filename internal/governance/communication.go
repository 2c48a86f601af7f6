// Package governance implements the task classifier/agent selector (§4.11
// step 3-4), adaptive communication (§4.8), the response quality checker
// (§4.9), and the top-level Governance Engine's process_input (§4.11).
package governance

import (
	"regexp"
	"strings"
)

// Context is one of the 10 recognized communication contexts (§3).
type Context string

const (
	ContextCasual    Context = "casual"
	ContextBusiness  Context = "business"
	ContextTechnical Context = "technical"
	ContextSupport   Context = "support"
	ContextSystem    Context = "system"
	ContextResearch  Context = "research"
	ContextLearning  Context = "learning"
	ContextExecutive Context = "executive"
	ContextSecurity  Context = "security"
	ContextCreative  Context = "creative"
)

// Profile is the numeric communication profile maintained per user (§3).
// ExplanationStyle and ErrorHandling are the enumerated style axes;
// ConfidenceExpression is a numeric weight read by SystemPrompt.
type Profile struct {
	Context               Context
	Formality             float64
	Empathy               float64
	TechnicalDepth        float64
	Verbosity             float64
	ResponseSpeedPriority bool
	ExplanationStyle      string // direct, guided, detailed
	ConfidenceExpression  float64
	ErrorHandling         string // formal, casual, empathetic
	PersonalityExpression float64
	Confidence            float64
}

// DefaultProfiles gives each of the 10 contexts a starting profile.
var DefaultProfiles = map[Context]Profile{
	ContextCasual:    {Formality: 0.2, Empathy: 0.6, TechnicalDepth: 0.2, Verbosity: 0.5, ConfidenceExpression: 0.5, ExplanationStyle: "guided", ErrorHandling: "casual", PersonalityExpression: 0.8},
	ContextBusiness:  {Formality: 0.7, Empathy: 0.5, TechnicalDepth: 0.5, Verbosity: 0.5, ConfidenceExpression: 0.6, ExplanationStyle: "direct", ErrorHandling: "formal", PersonalityExpression: 0.4},
	ContextTechnical: {Formality: 0.6, Empathy: 0.3, TechnicalDepth: 0.9, Verbosity: 0.7, ConfidenceExpression: 0.7, ExplanationStyle: "detailed", ErrorHandling: "formal", PersonalityExpression: 0.3},
	ContextSupport:   {Formality: 0.5, Empathy: 0.9, TechnicalDepth: 0.3, Verbosity: 0.6, ConfidenceExpression: 0.4, ExplanationStyle: "guided", ErrorHandling: "empathetic", PersonalityExpression: 0.6},
	ContextSystem:    {Formality: 0.8, Empathy: 0.1, TechnicalDepth: 0.8, Verbosity: 0.3, ConfidenceExpression: 0.9, ExplanationStyle: "direct", ErrorHandling: "formal", PersonalityExpression: 0.0, ResponseSpeedPriority: true},
	ContextResearch:  {Formality: 0.6, Empathy: 0.4, TechnicalDepth: 0.8, Verbosity: 0.8, ConfidenceExpression: 0.5, ExplanationStyle: "detailed", ErrorHandling: "formal", PersonalityExpression: 0.3},
	ContextLearning:  {Formality: 0.5, Empathy: 0.6, TechnicalDepth: 0.6, Verbosity: 0.8, ConfidenceExpression: 0.5, ExplanationStyle: "guided", ErrorHandling: "empathetic", PersonalityExpression: 0.5},
	ContextExecutive: {Formality: 0.9, Empathy: 0.3, TechnicalDepth: 0.3, Verbosity: 0.2, ConfidenceExpression: 0.8, ExplanationStyle: "direct", ErrorHandling: "formal", PersonalityExpression: 0.2, ResponseSpeedPriority: true},
	ContextSecurity:  {Formality: 0.7, Empathy: 0.3, TechnicalDepth: 0.8, Verbosity: 0.5, ConfidenceExpression: 0.8, ExplanationStyle: "direct", ErrorHandling: "formal", PersonalityExpression: 0.1, ResponseSpeedPriority: true},
	ContextCreative:  {Formality: 0.2, Empathy: 0.5, TechnicalDepth: 0.2, Verbosity: 0.7, ConfidenceExpression: 0.4, ExplanationStyle: "guided", ErrorHandling: "casual", PersonalityExpression: 0.9},
}

var contextKeywords = map[Context][]string{
	ContextCasual:    {"hey", "lol", "sup", "gonna", "wanna"},
	ContextBusiness:  {"regarding", "please advise", "kindly", "business"},
	ContextTechnical: {"function", "api", "stack trace", "compile", "error code", "algorithm"},
	ContextSupport:   {"not working", "help me", "broken", "issue", "problem"},
	ContextSystem:    {"system:", "automated", "healthcheck", "cron"},
	ContextResearch:  {"study", "hypothesis", "literature", "findings", "methodology"},
	ContextLearning:  {"explain", "how does", "teach me", "what is", "learn"},
	ContextExecutive: {"board", "roi", "quarterly", "strategy", "stakeholder"},
	ContextSecurity:  {"cve", "exploit", "vulnerability", "breach", "attacker", "malware"},
	ContextCreative:  {"story", "poem", "imagine", "brainstorm", "write a"},
}

// MetadataHints override context detection outright.
type MetadataHints struct {
	Role       string
	SystemCall bool
}

// DetectContext scores each of the 10 contexts by keyword weight and
// returns the winner plus its confidence. A winning score below 0.3 is a
// signal to the caller to fall back to the user's last-seen profile
// (confidence 0.7); metadata hints override entirely.
func DetectContext(input string, hints MetadataHints) (Context, float64) {
	if hints.SystemCall {
		return ContextSystem, 1.0
	}
	if hints.Role == "executive" {
		return ContextExecutive, 1.0
	}

	lower := strings.ToLower(input)
	bestCtx := ContextCasual
	bestScore := 0.0
	totalHits := 0

	for ctx, keywords := range contextKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		totalHits += hits
		score := float64(hits) / float64(len(keywords))
		if score > bestScore {
			bestScore = score
			bestCtx = ctx
		}
	}

	if totalHits == 0 {
		return ContextCasual, 0.0
	}
	return bestCtx, bestScore
}

// ResolveProfile applies the §4.8 fallback rule: if detection confidence is
// below 0.3, prefer lastSeen (confidence 0.7) over the context default.
func ResolveProfile(detected Context, detectionScore float64, lastSeen *Profile) Profile {
	if detectionScore < 0.3 && lastSeen != nil {
		p := *lastSeen
		p.Confidence = 0.7
		return p
	}
	p := DefaultProfiles[detected]
	p.Context = detected
	p.Confidence = detectionScore
	return p
}

// SystemPrompt converts the profile's numeric dimensions into imperative
// instructions via a piecewise table, concatenated into one system prompt.
func SystemPrompt(p Profile) string {
	var parts []string

	switch {
	case p.Formality > 0.8:
		parts = append(parts, "Use formal, professional language. Avoid contractions and slang.")
	case p.Formality < 0.3:
		parts = append(parts, "Use a casual, friendly tone.")
	default:
		parts = append(parts, "Use a balanced, conversational but polished tone.")
	}

	switch {
	case p.Empathy > 0.7:
		parts = append(parts, "Acknowledge the user's feelings before answering.")
	case p.Empathy < 0.3:
		parts = append(parts, "Stay matter-of-fact; do not editorialize about emotions.")
	}

	switch {
	case p.TechnicalDepth > 0.7:
		parts = append(parts, "Use precise technical terminology and assume expert background.")
	case p.TechnicalDepth < 0.3:
		parts = append(parts, "Avoid jargon; explain concepts in plain language.")
	}

	switch {
	case p.Verbosity < 0.3:
		parts = append(parts, "Be extremely concise: a few sentences at most.")
	case p.Verbosity > 0.7:
		parts = append(parts, "Provide thorough, detailed explanations.")
	}

	switch {
	case p.ConfidenceExpression > 0.7:
		parts = append(parts, "State conclusions directly and confidently.")
	case p.ConfidenceExpression < 0.3:
		parts = append(parts, "Hedge appropriately and note uncertainty where it exists.")
	}

	return strings.Join(parts, " ")
}

var (
	contractionExpansions = map[string]string{
		"can't": "cannot", "won't": "will not", "don't": "do not", "isn't": "is not",
		"aren't": "are not", "i'm": "I am", "it's": "it is", "that's": "that is",
		"didn't": "did not", "couldn't": "could not", "shouldn't": "should not",
		"wouldn't": "would not", "you're": "you are", "we're": "we are",
	}
	friendlyPunctRe   = regexp.MustCompile(`[!:)]|:\)|😊|🙂`)
	empatheticPhrases = []string{"i understand", "i hear you", "that sounds", "i'm sorry"}
)

// PostEdit applies the §4.8 response post-edit rules. It returns both the
// truncated response for display and the full pre-truncation text, since
// the verbosity cutoff is the only lossy step here and the caller retains
// the untruncated form alongside the truncated one.
func PostEdit(response string, p Profile) (truncated, full string) {
	out := response

	if p.Formality > 0.8 {
		out = expandContractions(out)
	}

	if p.Formality < 0.4 && !friendlyPunctRe.MatchString(out) {
		out += " Hope that helps!"
	}

	if p.Empathy > 0.7 && !containsAny(strings.ToLower(out), empatheticPhrases) {
		out = "I understand — " + out
	}

	full = out

	if p.Verbosity < 0.4 {
		lines := strings.Split(out, "\n")
		if len(lines) > 5 {
			out = strings.Join(lines[:3], "\n") + "\n…"
		}
	}

	return out, full
}

func expandContractions(text string) string {
	out := text
	for contraction, expansion := range contractionExpansions {
		out = replaceCaseInsensitive(out, contraction, expansion)
	}
	return out
}

func replaceCaseInsensitive(text, old, replacement string) string {
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(old))
	return re.ReplaceAllString(text, replacement)
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Feedback is explicit user feedback driving profile learning.
type Feedback string

const (
	FeedbackTooFormal     Feedback = "too_formal"
	FeedbackTooCasual     Feedback = "too_casual"
	FeedbackNotEmpathetic Feedback = "not_empathetic"
	FeedbackTooEmpathetic Feedback = "too_empathetic"
)

// ApplyFeedback multiplies the relevant dimension by 0.8 or 1.2, clamped
// to [0,1], and returns the updated profile for the caller to persist.
func ApplyFeedback(p Profile, fb Feedback) Profile {
	switch fb {
	case FeedbackTooFormal:
		p.Formality = clamp01(p.Formality * 0.8)
	case FeedbackTooCasual:
		p.Formality = clamp01(p.Formality * 1.2)
	case FeedbackNotEmpathetic:
		p.Empathy = clamp01(p.Empathy * 1.2)
	case FeedbackTooEmpathetic:
		p.Empathy = clamp01(p.Empathy * 0.8)
	}
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
