package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var cveRe = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)

// exploitedCacheTTL is the fixed refresh window for the actively-exploited
// catalog cross-check.
const exploitedCacheTTL = time.Hour

// CVEDetail is the enriched record returned for one CVE ID.
type CVEDetail struct {
	ID                string
	Severity          string
	CVSSVector        string
	Description       string
	AffectedProducts  []string
	References        []string
	ActivelyExploited bool
}

// CVELookup fetches detail for one CVE ID from an intel source (e.g. NVD).
type CVELookup interface {
	Lookup(ctx context.Context, cveID string) (CVEDetail, error)
}

// ExploitedCatalog reports whether a CVE ID appears in a curated
// actively-exploited list (e.g. CISA KEV).
type ExploitedCatalog interface {
	FetchIDs(ctx context.Context) (map[string]struct{}, error)
}

// CyberProvider implements Provider for CVE/cybersecurity intel (§4.3.4).
// The actively-exploited catalog is refreshed at most once per
// exploitedCacheTTL via an in-process LRU cache holding a single entry.
type CyberProvider struct {
	lookup    CVELookup
	catalog   ExploitedCatalog
	available bool

	mu          sync.Mutex
	cache       *lru.Cache[string, map[string]struct{}]
	lastRefresh time.Time
}

const exploitedCacheKey = "exploited"

func NewCyberProvider(lookup CVELookup, catalog ExploitedCatalog, available bool) *CyberProvider {
	cache, _ := lru.New[string, map[string]struct{}](1)
	return &CyberProvider{lookup: lookup, catalog: catalog, available: available, cache: cache}
}

func (p *CyberProvider) Name() string    { return "cyber" }
func (p *CyberProvider) Available() bool { return p.available && p.lookup != nil }

func (p *CyberProvider) IsRelevant(query string) bool {
	return cveRe.MatchString(strings.ToUpper(query))
}

func (p *CyberProvider) LookupForPrompt(ctx context.Context, query string) (bool, string) {
	ids := cveRe.FindAllString(strings.ToUpper(query), -1)
	if len(ids) == 0 {
		return false, ""
	}

	exploited := p.exploitedIDs(ctx)

	var lines []string
	for _, id := range ids {
		detail, err := p.lookup.Lookup(ctx, id)
		if err != nil {
			continue
		}
		_, detail.ActivelyExploited = exploited[id]

		line := fmt.Sprintf("%s [%s, CVSS %s]: %s", detail.ID, detail.Severity, detail.CVSSVector, detail.Description)
		if len(detail.AffectedProducts) > 0 {
			line += fmt.Sprintf(" (affects: %s)", strings.Join(detail.AffectedProducts, ", "))
		}
		if detail.ActivelyExploited {
			line += " — ACTIVELY EXPLOITED"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return false, ""
	}
	return true, strings.Join(lines, "\n")
}

// exploitedIDs returns the cached catalog, refreshing it if the cache is
// empty or older than exploitedCacheTTL.
func (p *CyberProvider) exploitedIDs(ctx context.Context) map[string]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.catalog == nil {
		return nil
	}

	if cached, ok := p.cache.Get(exploitedCacheKey); ok && time.Since(p.lastRefresh) < exploitedCacheTTL {
		return cached
	}

	ids, err := p.catalog.FetchIDs(ctx)
	if err != nil {
		if cached, ok := p.cache.Get(exploitedCacheKey); ok {
			return cached
		}
		return nil
	}

	p.cache.Add(exploitedCacheKey, ids)
	p.lastRefresh = time.Now()
	return ids
}
