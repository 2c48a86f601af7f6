// Package compression implements the generative-thunk compression engine
// (§4.6): instead of storing a cluster of related memory items verbatim,
// it derives a trigger pattern plus a template that reproduces the family
// of outputs via variable substitution.
package compression

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the category of thunk.
type Kind string

const (
	KindPattern   Kind = "PATTERN"
	KindTemplate  Kind = "TEMPLATE"
	KindKnowledge Kind = "KNOWLEDGE"
	KindRoutine   Kind = "ROUTINE"
)

// Thunk is a compressed, generative record.
type Thunk struct {
	ID             string
	Kind           Kind
	TriggerPattern string
	Triggers       []string
	Template       string
	Variables      map[string]string
	Confidence     float64
	OriginalBytes  int
	ThunkBytes     int
	FireCount      int
	LastFired      time.Time

	compiledTrigger *regexp.Regexp
}

// ErrNotCompressible is returned when the resulting thunk would be no
// smaller than the original cluster (ratio <= 1.0).
var ErrNotCompressible = fmt.Errorf("compression: cluster does not compress below original size")

// ClusterItem is one item in a thematically-related cluster to compress.
type ClusterItem struct {
	Content   string
	Response  string
	Timestamp time.Time
}

var preferenceVerbs = []string{"like", "love", "prefer", "hate", "enjoy", "want", "need"}

// CompressPattern builds a PATTERN thunk per §4.6: trigger candidates are
// tokens occurring in >= 50% of items, variables are capitalized tokens
// seen >= 2 times (tagged "name") and preference-verb hits (tagged
// "preference"), and the template is the shortest response with stored
// values replaced by {var} placeholders.
func CompressPattern(cluster []ClusterItem) (*Thunk, error) {
	if len(cluster) < 3 {
		return nil, fmt.Errorf("compression: cluster size %d below minimum of 3", len(cluster))
	}

	freq := make(map[string]int)
	originalBytes := 0
	for _, item := range cluster {
		originalBytes += len(item.Content)
		seen := make(map[string]struct{})
		for _, tok := range strings.Fields(strings.ToLower(item.Content)) {
			tok = strings.Trim(tok, ".,!?;:'\"")
			if tok == "" {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			freq[tok]++
		}
	}

	var triggers []string
	for tok, count := range freq {
		if count*2 >= len(cluster) {
			triggers = append(triggers, tok)
		}
	}
	sort.Strings(triggers)

	capitalizedCounts := make(map[string]int)
	for _, item := range cluster {
		for _, word := range strings.Fields(item.Content) {
			word = strings.Trim(word, ".,!?;:'\"")
			if len(word) > 1 && strings.ToUpper(word[:1]) == word[:1] && strings.ToLower(word) != word {
				capitalizedCounts[word]++
			}
		}
	}

	variables := make(map[string]string)
	for word, count := range capitalizedCounts {
		if count >= 2 {
			variables["name"] = word
		}
	}
	lowerContent := strings.ToLower(joinContents(cluster))
	for _, verb := range preferenceVerbs {
		if strings.Contains(lowerContent, verb) {
			variables["preference"] = verb
			break
		}
	}

	template := shortestResponse(cluster)
	for key, val := range variables {
		template = strings.ReplaceAll(template, val, "{"+key+"}")
	}

	return finalizeThunk(KindPattern, triggers, template, variables, originalBytes, float64(len(cluster))/20, 0.95)
}

// CompressTemplate builds a TEMPLATE thunk by finding the longest common
// token run across the cluster's responses.
func CompressTemplate(cluster []ClusterItem) (*Thunk, error) {
	if len(cluster) < 3 {
		return nil, fmt.Errorf("compression: cluster size %d below minimum of 3", len(cluster))
	}

	originalBytes := 0
	responses := make([][]string, 0, len(cluster))
	for _, item := range cluster {
		originalBytes += len(item.Content)
		responses = append(responses, strings.Fields(item.Response))
	}

	run := longestCommonRun(responses)
	template := strings.Join(run, " ")
	if template == "" {
		template = shortestResponse(cluster)
	}

	triggers := []string{firstNonEmptyToken(run)}
	return finalizeThunk(KindTemplate, triggers, template, nil, originalBytes, float64(len(cluster))/10, 0.9)
}

// CompressKnowledge keeps up to 10 distinct facts from the cluster joined
// by a separator.
func CompressKnowledge(cluster []ClusterItem) (*Thunk, error) {
	if len(cluster) < 3 {
		return nil, fmt.Errorf("compression: cluster size %d below minimum of 3", len(cluster))
	}

	originalBytes := 0
	seen := make(map[string]struct{})
	var facts []string
	for _, item := range cluster {
		originalBytes += len(item.Content)
		if _, ok := seen[item.Content]; ok {
			continue
		}
		seen[item.Content] = struct{}{}
		facts = append(facts, item.Content)
		if len(facts) >= 10 {
			break
		}
	}

	template := strings.Join(facts, " | ")
	return finalizeThunk(KindKnowledge, nil, template, nil, originalBytes, float64(len(cluster))/10, 0.9)
}

// CompressRoutine extracts the peak hour over the cluster's timestamps and
// encodes a time-triggered template.
func CompressRoutine(cluster []ClusterItem) (*Thunk, error) {
	if len(cluster) < 3 {
		return nil, fmt.Errorf("compression: cluster size %d below minimum of 3", len(cluster))
	}

	originalBytes := 0
	hourCounts := make(map[int]int)
	for _, item := range cluster {
		originalBytes += len(item.Content)
		hourCounts[item.Timestamp.Hour()]++
	}

	peakHour, peakCount := 0, -1
	for h, c := range hourCounts {
		if c > peakCount {
			peakHour, peakCount = h, c
		}
	}

	template := fmt.Sprintf("At %02d:00, %s", peakHour, shortestResponse(cluster))
	triggers := []string{fmt.Sprintf("%02d:00", peakHour)}
	return finalizeThunk(KindRoutine, triggers, template, map[string]string{"peak_hour": fmt.Sprintf("%d", peakHour)}, originalBytes, float64(len(cluster))/10, 0.9)
}

func finalizeThunk(kind Kind, triggers []string, template string, variables map[string]string, originalBytes int, confidenceRatio, confidenceCap float64) (*Thunk, error) {
	pattern := strings.Join(triggers, "|")
	serialized := pattern + template + serializeVariables(variables)
	thunkBytes := len(serialized)

	if originalBytes > 0 && float64(thunkBytes)/float64(originalBytes) >= 1.0 {
		return nil, ErrNotCompressible
	}

	confidence := confidenceRatio
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	var compiled *regexp.Regexp
	if pattern != "" {
		compiled = regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	}

	return &Thunk{
		ID:              uuid.NewString(),
		Kind:            kind,
		TriggerPattern:  pattern,
		Triggers:        triggers,
		Template:        template,
		Variables:       variables,
		Confidence:      confidence,
		OriginalBytes:   originalBytes,
		ThunkBytes:      thunkBytes,
		compiledTrigger: compiled,
	}, nil
}

func serializeVariables(vars map[string]string) string {
	var sb strings.Builder
	for k, v := range vars {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(v)
		sb.WriteString(";")
	}
	return sb.String()
}

func shortestResponse(cluster []ClusterItem) string {
	shortest := cluster[0].Response
	if shortest == "" {
		shortest = cluster[0].Content
	}
	for _, item := range cluster[1:] {
		candidate := item.Response
		if candidate == "" {
			candidate = item.Content
		}
		if len(candidate) < len(shortest) {
			shortest = candidate
		}
	}
	return shortest
}

func joinContents(cluster []ClusterItem) string {
	var sb strings.Builder
	for _, item := range cluster {
		sb.WriteString(item.Content)
		sb.WriteString(" ")
	}
	return sb.String()
}

func longestCommonRun(tokenLists [][]string) []string {
	if len(tokenLists) == 0 {
		return nil
	}
	best := []string{}
	base := tokenLists[0]
	for start := 0; start < len(base); start++ {
		for length := len(base) - start; length > len(best); length-- {
			candidate := base[start : start+length]
			if allContainRun(tokenLists[1:], candidate) {
				best = candidate
			}
		}
	}
	return best
}

func allContainRun(lists [][]string, run []string) bool {
	for _, l := range lists {
		if !containsRun(l, run) {
			return false
		}
	}
	return true
}

func containsRun(tokens, run []string) bool {
	if len(run) == 0 || len(run) > len(tokens) {
		return len(run) == 0
	}
	for i := 0; i+len(run) <= len(tokens); i++ {
		match := true
		for j, t := range run {
			if tokens[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func firstNonEmptyToken(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}
