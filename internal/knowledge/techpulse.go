package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TechDomain classifies a tech-pulse query (§4.3.5).
type TechDomain string

const (
	TechAI       TechDomain = "ai"
	TechSecurity TechDomain = "security"
	TechCloud    TechDomain = "cloud"
	TechWeb3     TechDomain = "web3"
	TechQuantum  TechDomain = "quantum"
	TechHardware TechDomain = "hardware"
)

var techDomainKeywords = map[TechDomain][]string{
	TechAI:       {"ai", "llm", "machine learning", "model"},
	TechSecurity: {"vulnerability", "exploit", "breach", "cve", "security tool"},
	TechCloud:    {"cloud", "kubernetes", "aws", "azure", "gcp"},
	TechWeb3:     {"crypto", "blockchain", "web3", "nft"},
	TechQuantum:  {"quantum"},
	TechHardware: {"chip", "gpu", "processor", "hardware"},
}

var techPulseTriggerRe = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, kws := range techDomainKeywords {
		for _, kw := range kws {
			m[kw] = struct{}{}
		}
	}
	m["trending"] = struct{}{}
	m["open source"] = struct{}{}
	return m
}()

// TrendingFetcher retrieves trending repos, recently-released security
// tools, and top community stories for a domain.
type TrendingFetcher interface {
	TrendingRepos(ctx context.Context, domain TechDomain) ([]string, error)
	RecentSecurityTools(ctx context.Context, domain TechDomain) ([]string, error)
	TopStories(ctx context.Context, domain TechDomain) ([]string, error)
}

const techPulseCacheTTL = time.Hour

// TechPulseProvider implements Provider for developer/security trend
// summaries (§4.3.5), cached hourly per domain.
type TechPulseProvider struct {
	fetcher   TrendingFetcher
	available bool

	mu          sync.Mutex
	cache       *lru.Cache[TechDomain, string]
	lastRefresh map[TechDomain]time.Time
}

func NewTechPulseProvider(fetcher TrendingFetcher, available bool) *TechPulseProvider {
	cache, _ := lru.New[TechDomain, string](8)
	return &TechPulseProvider{
		fetcher:     fetcher,
		available:   available,
		cache:       cache,
		lastRefresh: make(map[TechDomain]time.Time),
	}
}

func (p *TechPulseProvider) Name() string    { return "tech_pulse" }
func (p *TechPulseProvider) Available() bool { return p.available && p.fetcher != nil }

func (p *TechPulseProvider) IsRelevant(query string) bool {
	lower := strings.ToLower(query)
	for kw := range techPulseTriggerRe {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (p *TechPulseProvider) classify(query string) TechDomain {
	lower := strings.ToLower(query)
	for domain, keywords := range techDomainKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return domain
			}
		}
	}
	return TechAI
}

func (p *TechPulseProvider) LookupForPrompt(ctx context.Context, query string) (bool, string) {
	domain := p.classify(query)

	p.mu.Lock()
	if cached, ok := p.cache.Get(domain); ok && time.Since(p.lastRefresh[domain]) < techPulseCacheTTL {
		p.mu.Unlock()
		return true, cached
	}
	p.mu.Unlock()

	repos, _ := p.fetcher.TrendingRepos(ctx, domain)
	tools, _ := p.fetcher.RecentSecurityTools(ctx, domain)
	stories, _ := p.fetcher.TopStories(ctx, domain)
	if len(repos) == 0 && len(tools) == 0 && len(stories) == 0 {
		return false, ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tech pulse (%s):", domain))
	if len(repos) > 0 {
		sb.WriteString("\nTrending repos: " + strings.Join(repos, ", "))
	}
	if len(tools) > 0 {
		sb.WriteString("\nRecent security tools: " + strings.Join(tools, ", "))
	}
	if len(stories) > 0 {
		sb.WriteString("\nTop stories: " + strings.Join(stories, ", "))
	}
	blob := sb.String()

	p.mu.Lock()
	p.cache.Add(domain, blob)
	p.lastRefresh[domain] = time.Now()
	p.mu.Unlock()

	return true, blob
}
