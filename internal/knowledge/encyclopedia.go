package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var encyclopediaRe = regexp.MustCompile(`(?i)^\s*(who|what)\s+(is|are|was|were)\s+(.+?)\??\s*$|(?i)tell me about\s+(.+?)\??\s*$`)

// SummaryFetcher retrieves a one-paragraph summary plus related topics for
// a subject (e.g. a Wikipedia REST summary endpoint).
type SummaryFetcher interface {
	Summarize(ctx context.Context, subject string) (summary string, related []string, err error)
}

// EncyclopediaProvider implements Provider for "who/what is X" lookups (§4.3.6).
type EncyclopediaProvider struct {
	fetcher   SummaryFetcher
	available bool
	ranker    *RelatedTopicsRanker
}

func NewEncyclopediaProvider(fetcher SummaryFetcher, available bool) *EncyclopediaProvider {
	return &EncyclopediaProvider{fetcher: fetcher, available: available, ranker: NewRelatedTopicsRanker(nil)}
}

func (p *EncyclopediaProvider) Name() string    { return "encyclopedia" }
func (p *EncyclopediaProvider) Available() bool { return p.available && p.fetcher != nil }

func (p *EncyclopediaProvider) IsRelevant(query string) bool {
	return encyclopediaRe.MatchString(query)
}

func (p *EncyclopediaProvider) extractSubject(query string) string {
	m := encyclopediaRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	if m[3] != "" {
		return strings.TrimSpace(m[3])
	}
	return strings.TrimSpace(m[4])
}

func (p *EncyclopediaProvider) LookupForPrompt(ctx context.Context, query string) (bool, string) {
	subject := p.extractSubject(query)
	if subject == "" {
		return false, ""
	}

	summary, related, err := p.fetcher.Summarize(ctx, subject)
	if err != nil || summary == "" {
		return false, ""
	}

	blob := fmt.Sprintf("%s: %s", subject, summary)
	if ranked, err := p.ranker.Rank(ctx, query, related, 3); err == nil && len(ranked) > 0 {
		related = ranked
	} else if len(related) > 3 {
		related = related[:3]
	}
	if len(related) > 0 {
		blob += "\nRelated: " + strings.Join(related, ", ")
	}
	return true, blob
}
