package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// NewsCategory classifies a news query, per §4.3.3.
type NewsCategory string

const (
	NewsGeneral    NewsCategory = "general"
	NewsBusiness   NewsCategory = "business"
	NewsTechnology NewsCategory = "technology"
	NewsFinance    NewsCategory = "finance"
	NewsPolitics   NewsCategory = "politics"
	NewsScience    NewsCategory = "science"
)

var categoryKeywords = map[NewsCategory][]string{
	NewsBusiness:   {"business", "market", "earnings", "ipo", "merger"},
	NewsFinance:    {"stock", "finance", "investor", "fed", "interest rate"},
	NewsTechnology: {"tech", "software", "ai", "startup", "gadget"},
	NewsPolitics:   {"election", "senate", "congress", "president", "policy"},
	NewsScience:    {"research", "study", "discovery", "nasa", "physics"},
}

var newsTriggerRe = regexp.MustCompile(`(?i)\b(news|headlines|happening with)\b`)

// NewsArticleFetcher retrieves top articles for a category/topic from a
// financial or general-news API.
type NewsArticleFetcher interface {
	TopArticles(ctx context.Context, category NewsCategory, topic string) ([]string, error)
}

// SentimentScorer scores a detected ticker's recent news sentiment.
type SentimentScorer interface {
	Score(ctx context.Context, ticker string) (score float64, ok bool)
}

// NewsProvider implements Provider for general and financial news (§4.3.3).
type NewsProvider struct {
	financial   NewsArticleFetcher
	general     NewsArticleFetcher
	rssFallback *gofeed.Parser
	rssFeedURL  string
	sentiment   SentimentScorer
	available   bool
}

func NewNewsProvider(financial, general NewsArticleFetcher, rssFeedURL string, sentiment SentimentScorer, available bool) *NewsProvider {
	return &NewsProvider{
		financial:   financial,
		general:     general,
		rssFallback: gofeed.NewParser(),
		rssFeedURL:  rssFeedURL,
		sentiment:   sentiment,
		available:   available,
	}
}

func (p *NewsProvider) Name() string    { return "news" }
func (p *NewsProvider) Available() bool { return p.available }

func (p *NewsProvider) IsRelevant(query string) bool {
	return newsTriggerRe.MatchString(query)
}

func (p *NewsProvider) classify(query string) NewsCategory {
	lower := strings.ToLower(query)
	for cat, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return NewsGeneral
}

func (p *NewsProvider) LookupForPrompt(ctx context.Context, query string) (bool, string) {
	category := p.classify(query)
	topic := extractTopic(query)

	var articles []string
	var err error

	if category == NewsBusiness || category == NewsFinance {
		if p.financial != nil {
			articles, err = p.financial.TopArticles(ctx, category, topic)
		}
	}
	if len(articles) == 0 && p.general != nil {
		articles, err = p.general.TopArticles(ctx, category, topic)
	}
	if len(articles) == 0 {
		articles = p.rssFetch(ctx)
	}
	if len(articles) == 0 {
		_ = err
		return false, ""
	}

	blob := fmt.Sprintf("News (%s): %s", category, strings.Join(articles, " | "))

	if ticker := firstDetectedTicker(query); ticker != "" && p.sentiment != nil {
		if score, ok := p.sentiment.Score(ctx, ticker); ok {
			blob += fmt.Sprintf("\nSentiment for %s: %.2f", ticker, score)
		}
	}
	return true, blob
}

// rssFetch is the zero-config fallback used when no NEWSAPI-style key is
// configured: it parses a general-purpose RSS feed directly.
func (p *NewsProvider) rssFetch(ctx context.Context) []string {
	if p.rssFallback == nil || p.rssFeedURL == "" {
		return nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	feed, err := p.rssFallback.ParseURLWithContext(p.rssFeedURL, fetchCtx)
	if err != nil || feed == nil {
		return nil
	}

	var out []string
	for i, item := range feed.Items {
		if i >= 5 {
			break
		}
		out = append(out, item.Title)
	}
	return out
}

func extractTopic(query string) string {
	words := strings.Fields(query)
	if len(words) > 3 {
		return strings.Join(words[len(words)-3:], " ")
	}
	return query
}

// firstDetectedTicker reuses the $TICK regex (without pulling in the full
// stocks provider) to look for a ticker to attach sentiment to.
func firstDetectedTicker(query string) string {
	m := dollarTickerRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return m[1]
}
