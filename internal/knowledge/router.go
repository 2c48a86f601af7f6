package knowledge

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Router implements the ordered pre-lookup pipeline and the post-generation
// uncertainty retry (§4.3).
type Router struct {
	stocks       Provider
	weather      Provider
	cyber        Provider
	techPulse    Provider
	news         Provider
	encyclopedia Provider
	web          Provider
	webDetector  *regexp.Regexp
}

// uncertaintyPhrases flags draft responses that hedge about not having
// live data; detection triggers the single post-generation retry.
var uncertaintyPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i don'?t have access to real-time`),
	regexp.MustCompile(`(?i)as of my knowledge cutoff`),
	regexp.MustCompile(`(?i)i'?m not sure (about|of) (the )?(current|latest)`),
	regexp.MustCompile(`(?i)i cannot (access|provide) (real-time|live|current)`),
	regexp.MustCompile(`(?i)my (training|knowledge) (data )?(ends|is limited to)`),
}

var needsLookupRe = regexp.MustCompile(`(?i)\b(current|latest|today|right now|real-time|breaking)\b`)

// NewRouter assembles the pipeline. Any provider may be nil, in which case
// it is simply skipped (used by tests and by deployments missing an API
// key for one provider kind).
func NewRouter(stocks, weather, cyber, techPulse, news, encyclopedia, web Provider) *Router {
	return &Router{
		stocks:       stocks,
		weather:      weather,
		cyber:        cyber,
		techPulse:    techPulse,
		news:         news,
		encyclopedia: encyclopedia,
		web:          web,
		webDetector:  needsLookupRe,
	}
}

// PreLookup runs the ordered routing policy from §4.3 and returns the
// concatenated context blob (possibly empty) plus the providers that hit.
func (r *Router) PreLookup(ctx context.Context, query string) (string, []Hit) {
	var sb strings.Builder
	var hits []Hit

	ordered := []Provider{r.stocks, r.weather, r.cyber, r.techPulse, r.news}
	for _, p := range ordered {
		if p == nil || !p.Available() || !p.IsRelevant(query) {
			continue
		}
		matched, blob := p.LookupForPrompt(ctx, query)
		if !matched {
			continue
		}
		sb.WriteString(blob)
		sb.WriteString("\n")
		hits = append(hits, Hit{Provider: p.Name(), Blob: blob})
	}

	context_ := sb.String()
	if context_ == "" && r.encyclopedia != nil && r.encyclopedia.Available() && r.encyclopedia.IsRelevant(query) {
		if matched, blob := r.encyclopedia.LookupForPrompt(ctx, query); matched {
			context_ = blob + "\n"
			hits = append(hits, Hit{Provider: r.encyclopedia.Name(), Blob: blob})
		}
	}

	if context_ == "" && r.web != nil && r.web.Available() && r.needsLookupBefore(query) {
		if matched, blob := r.web.LookupForPrompt(ctx, query); matched {
			context_ = blob + "\n"
			hits = append(hits, Hit{Provider: r.web.Name(), Blob: blob})
		}
	}

	if len(hits) > 0 {
		slog.Debug("pre-lookup hit", slog.Int("providers", len(hits)))
	}
	return context_, hits
}

func (r *Router) needsLookupBefore(query string) bool {
	return r.webDetector.MatchString(query)
}

// SuggestsUncertainty reports whether draft hedges about lacking live data.
func SuggestsUncertainty(draft string) bool {
	for _, re := range uncertaintyPhrases {
		if re.MatchString(draft) {
			return true
		}
	}
	return false
}

// NeedsRetry implements the post-generation retry gate: the draft hedges
// AND no pre-lookup fired for the original query.
func NeedsRetry(draft string, priorHits []Hit) bool {
	return SuggestsUncertainty(draft) && len(priorHits) == 0
}
