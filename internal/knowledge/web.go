package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SearchFetcher issues the generic web search underlying the fallback
// provider; WebProvider then fetches and extracts text from the top result.
type SearchFetcher interface {
	TopResultURL(ctx context.Context, query string) (string, error)
}

// WebProvider implements Provider as the last-resort fallback (§4.3.7):
// gated by a detector recognizing "current/latest/today/real-time"
// phrasing, it searches the web and extracts readable text from the top
// result via goquery.
type WebProvider struct {
	search     SearchFetcher
	httpClient *http.Client
	available  bool
	ranker     *RelatedTopicsRanker
}

func NewWebProvider(search SearchFetcher, available bool) *WebProvider {
	return &WebProvider{
		search:     search,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		available:  available,
		ranker:     NewRelatedTopicsRanker(nil),
	}
}

// SetHTTPClient overrides the provider's page-fetch client, e.g. with a
// ratelimit.WrapClient-wrapped one.
func (p *WebProvider) SetHTTPClient(c *http.Client) { p.httpClient = c }

func (p *WebProvider) Name() string    { return "web" }
func (p *WebProvider) Available() bool { return p.available && p.search != nil }

// IsRelevant always returns true: routing gates this provider separately
// via Router.needsLookupBefore, not via IsRelevant (§4.3 routing policy).
func (p *WebProvider) IsRelevant(query string) bool {
	return true
}

func (p *WebProvider) LookupForPrompt(ctx context.Context, query string) (bool, string) {
	topURL, err := p.search.TopResultURL(ctx, query)
	if err != nil || topURL == "" {
		return false, ""
	}

	text, err := p.extractText(ctx, topURL, query)
	if err != nil || text == "" {
		return false, ""
	}
	return true, fmt.Sprintf("From %s: %s", topURL, text)
}

func (p *WebProvider) extractText(ctx context.Context, pageURL, query string) (string, error) {
	if _, err := url.Parse(pageURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer").Remove()

	var paragraphs []string
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	// Rank paragraphs by similarity to the query so the 1200-char budget
	// favors the most relevant passage rather than whatever comes first
	// in document order.
	if ranked, err := p.ranker.Rank(ctx, query, paragraphs, len(paragraphs)); err == nil && len(ranked) > 0 {
		paragraphs = ranked
	}

	var sb strings.Builder
	for _, para := range paragraphs {
		if sb.Len() > 1200 {
			break
		}
		sb.WriteString(para)
		sb.WriteString(" ")
	}

	extracted := strings.TrimSpace(sb.String())
	if len(extracted) > 1200 {
		extracted = extracted[:1200]
	}
	return extracted, nil
}
