package governance

import (
	"context"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxCheckedSentences and maxRepeatCandidates are the original
// implementation's fixed caps, carried forward verbatim (§12 of the
// design notes): up to 5 leading sentences are claim-checked, and a draft
// is compared against at most 5 past-response candidates for repetition.
const (
	maxCheckedSentences  = 5
	maxRepeatCandidates  = 5
	repeatSimilarityFlag = 0.75
)

// QualityFlag is one issue the checker can raise.
type QualityFlag string

const (
	FlagRepeat               QualityFlag = "REPEAT"
	FlagUnverifiedClaims     QualityFlag = "UNVERIFIED_CLAIMS"
	FlagContradictsKnowledge QualityFlag = "CONTRADICTS_KNOWLEDGE"
	FlagMissingLimitation    QualityFlag = "MISSING_LIMITATION"
)

// QualityLevel buckets the overall assessment for display.
type QualityLevel string

const (
	LevelVerified         QualityLevel = "VERIFIED"
	LevelHonestLimitation QualityLevel = "HONEST_LIMITATION"
	LevelLikelyAccurate   QualityLevel = "LIKELY_ACCURATE"
	LevelSuspicious       QualityLevel = "SUSPICIOUS"
	LevelRepeat           QualityLevel = "REPEAT"
	LevelContradicts      QualityLevel = "CONTRADICTS"
)

var confidenceByLevel = map[QualityLevel]float64{
	LevelVerified:         0.95,
	LevelHonestLimitation: 0.85,
	LevelLikelyAccurate:   0.75,
	LevelSuspicious:       0.4,
	LevelRepeat:           0.5,
	LevelContradicts:      0.1,
}

// QualityReport is the checker's output (§4.9).
type QualityReport struct {
	QualityLevel     QualityLevel
	IsClean          bool
	Flags            []QualityFlag
	Recommendations  []string
	Confidence       float64
	VerifiedClaims   []string
	UnverifiedClaims []string
}

var hedgingRe = regexp.MustCompile(`(?i)\bi (think|believe|might|guess)\b|\bseems\b`)

var limitationPhrases = []string{
	"i don't have access", "i'm not certain", "i cannot guarantee",
	"as of my knowledge", "i may be wrong", "please verify",
}

var uncertaintyTriggers = []string{
	"future", "predict", "will happen", "private", "latest", "real-time", "confidential",
}

var negationRe = regexp.MustCompile(`(?i)\b(not|isn't|aren't|wasn't|weren't)\s+([a-zA-Z][a-zA-Z\s]{0,30}?)\b`)

// KnowledgeSource exposes the permanent store's knowledge search for
// claim verification and contradiction detection.
type KnowledgeSource interface {
	SearchKnowledge(ctx context.Context, query string, limit int) ([]KnowledgeFact, error)
}

// KnowledgeFact is the minimal shape the checker needs from a stored
// knowledge entry.
type KnowledgeFact struct {
	Value string
}

// PastResponse is a previously-stored response used for repeat detection.
type PastResponse struct {
	Text string
}

// ResponseHistory looks up past responses to similar inputs.
type ResponseHistory interface {
	SimilarResponses(ctx context.Context, input string, limit int) ([]PastResponse, error)
}

// Check runs the four-stage quality check described in §4.9.
func Check(ctx context.Context, input, draft string, history ResponseHistory, knowledge KnowledgeSource) QualityReport {
	report := QualityReport{IsClean: true}

	if isRepeat(ctx, input, draft, history) {
		report.Flags = append(report.Flags, FlagRepeat)
		report.IsClean = false
	}

	verified, unverified := checkClaims(ctx, draft, knowledge)
	report.VerifiedClaims = verified
	report.UnverifiedClaims = unverified
	if len(unverified) > 0 && !hasLimitationPhrase(draft) {
		report.Flags = append(report.Flags, FlagUnverifiedClaims)
		report.IsClean = false
	}

	if contradictsKnowledge(ctx, draft, knowledge) {
		report.Flags = append(report.Flags, FlagContradictsKnowledge)
		report.IsClean = false
	}

	if needsLimitation(input) && !hasLimitationPhrase(draft) {
		report.Flags = append(report.Flags, FlagMissingLimitation)
		report.IsClean = false
	}

	report.QualityLevel = classifyLevel(report.Flags)
	if report.QualityLevel == LevelVerified && len(report.VerifiedClaims) == 0 {
		report.QualityLevel = LevelLikelyAccurate
	}
	report.Confidence = confidenceByLevel[report.QualityLevel]
	report.Recommendations = recommendationsFor(report.Flags)
	return report
}

func isRepeat(ctx context.Context, input, draft string, history ResponseHistory) bool {
	if history == nil {
		return false
	}
	past, err := history.SimilarResponses(ctx, input, maxRepeatCandidates)
	if err != nil {
		return false
	}
	dmp := diffmatchpatch.New()
	for i, p := range past {
		if i >= maxRepeatCandidates {
			break
		}
		if tokenSimilarity(dmp, draft, p.Text) > repeatSimilarityFlag {
			return true
		}
	}
	return false
}

// tokenSimilarity computes a Levenshtein-style similarity ratio in [0,1]
// over the diff-match-patch edit distance between two strings.
func tokenSimilarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(distance)/float64(maxLen)
}

func checkClaims(ctx context.Context, draft string, knowledge KnowledgeSource) ([]string, []string) {
	sentences := splitSentences(draft)
	if len(sentences) > maxCheckedSentences {
		sentences = sentences[:maxCheckedSentences]
	}

	var verified, unverified []string
	for _, s := range sentences {
		if hedgingRe.MatchString(s) {
			unverified = append(unverified, s)
			continue
		}
		if knowledge == nil {
			continue
		}
		tokens := strings.Fields(strings.ToLower(s))
		if len(tokens) == 0 {
			continue
		}
		facts, err := knowledge.SearchKnowledge(ctx, strings.Join(tokens, " "), 1)
		if err == nil && len(facts) > 0 {
			verified = append(verified, s)
		} else {
			unverified = append(unverified, s)
		}
	}
	return verified, unverified
}

func contradictsKnowledge(ctx context.Context, draft string, knowledge KnowledgeSource) bool {
	if knowledge == nil {
		return false
	}
	negations := negationRe.FindAllStringSubmatch(draft, -1)
	if len(negations) == 0 {
		return false
	}
	for _, m := range negations {
		subject := strings.TrimSpace(m[2])
		if subject == "" {
			continue
		}
		facts, err := knowledge.SearchKnowledge(ctx, subject, 3)
		if err != nil {
			continue
		}
		for _, f := range facts {
			if strings.Contains(strings.ToLower(f.Value), strings.ToLower(subject)) {
				return true
			}
		}
	}
	return false
}

func needsLimitation(input string) bool {
	lower := strings.ToLower(input)
	for _, trigger := range uncertaintyTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

func hasLimitationPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range limitationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func classifyLevel(flags []QualityFlag) QualityLevel {
	has := func(f QualityFlag) bool {
		for _, flag := range flags {
			if flag == f {
				return true
			}
		}
		return false
	}

	switch {
	case has(FlagContradictsKnowledge):
		return LevelContradicts
	case has(FlagRepeat):
		return LevelRepeat
	case has(FlagUnverifiedClaims):
		return LevelSuspicious
	case has(FlagMissingLimitation):
		return LevelSuspicious
	case len(flags) == 0:
		return LevelVerified
	default:
		return LevelLikelyAccurate
	}
}

func recommendationsFor(flags []QualityFlag) []string {
	var out []string
	for _, f := range flags {
		switch f {
		case FlagRepeat:
			out = append(out, "Vary phrasing from prior similar responses.")
		case FlagUnverifiedClaims:
			out = append(out, "Acknowledge uncertainty or cite a source for unverified claims.")
		case FlagContradictsKnowledge:
			out = append(out, "Reconcile the response with previously stored facts.")
		case FlagMissingLimitation:
			out = append(out, "State a limitation given the uncertain nature of the request.")
		}
	}
	return out
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+\s+`)

func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(strings.TrimSpace(text), -1)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
