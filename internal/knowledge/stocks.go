package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
)

// cryptoRewrite maps a handful of well-known crypto names to the
// X:SYMBOLUSD ticker convention used by most quote providers. Not an
// exhaustive production list.
var cryptoRewrite = map[string]string{
	"bitcoin":     "X:BTCUSD",
	"ethereum":    "X:ETHUSD",
	"solana":      "X:SOLUSD",
	"dogecoin":    "X:DOGEUSD",
	"cardano":     "X:ADAUSD",
	"polkadot":    "X:DOTUSD",
	"litecoin":    "X:LTCUSD",
	"ripple":      "X:XRPUSD",
	"chainlink": "X:LINKUSD",
	"polygon":   "X:MATICUSD",
	"avalanche": "X:AVAXUSD",
	"tron":      "X:TRXUSD",
	"stellar":   "X:XLMUSD",
	"monero":    "X:XMRUSD",
	"cosmos":    "X:ATOMUSD",
}


// companyLexicon is a small set of well-known company name -> ticker
// mappings, matched fuzzily so "tell me about apple stock" resolves to AAPL.
var companyLexicon = map[string]string{
	"apple":     "AAPL",
	"microsoft": "MSFT",
	"google":    "GOOGL",
	"alphabet":  "GOOGL",
	"amazon":    "AMZN",
	"meta":      "META",
	"facebook":  "META",
	"nvidia":    "NVDA",
	"tesla":     "TSLA",
	"netflix":   "NFLX",
	"intel":     "INTC",
	"amd":       "AMD",
}

var (
	dollarTickerRe = regexp.MustCompile(`\$([A-Z]{1,5})\b`)
	bareTickerRe   = regexp.MustCompile(`\b([A-Z]{1,5})\b\s+(stock|shares|price|trading|quote|up|down)\b`)
)

// tradeVerbStopList excludes common uppercase English tokens (acronyms,
// sentence-initial words) that would otherwise false-positive as tickers.
var tradeVerbStopList = map[string]struct{}{
	"I": {}, "A": {}, "CEO": {}, "CFO": {}, "USA": {}, "THE": {}, "FOR": {},
	"AND": {}, "NOT": {}, "ALL": {}, "NEW": {}, "CPU": {}, "GPU": {}, "API": {},
}

// QuoteFetcher retrieves a previous-close quote for a ticker. Implemented
// by an HTTP-backed type in production and a fake in tests.
type QuoteFetcher interface {
	PreviousClose(ctx context.Context, ticker string) (price float64, changePct float64, err error)
}

// StocksProvider implements Provider for stock/crypto quote lookups (§4.3.1).
type StocksProvider struct {
	fetcher   QuoteFetcher
	available bool
}

// NewStocksProvider constructs a stocks provider backed by fetcher.
// available should reflect whether a quote API key is configured.
func NewStocksProvider(fetcher QuoteFetcher, available bool) *StocksProvider {
	return &StocksProvider{fetcher: fetcher, available: available}
}

func (p *StocksProvider) Name() string    { return "stocks" }
func (p *StocksProvider) Available() bool { return p.available && p.fetcher != nil }

func (p *StocksProvider) IsRelevant(query string) bool {
	return len(p.detectTickers(query)) > 0
}

func (p *StocksProvider) LookupForPrompt(ctx context.Context, query string) (bool, string) {
	tickers := p.detectTickers(query)
	if len(tickers) == 0 {
		return false, ""
	}

	var lines []string
	for _, t := range tickers {
		price, pct, err := p.fetcher.PreviousClose(ctx, t)
		if err != nil {
			continue
		}
		direction := "up"
		if pct < 0 {
			direction = "down"
		}
		lines = append(lines, fmt.Sprintf("%s: $%.2f (%+.2f%% %s)", t, price, pct, direction))
	}
	if len(lines) == 0 {
		return false, ""
	}
	return true, strings.Join(lines, "\n")
}

// detectTickers runs the four detection strategies from §4.3.1 in order:
// company lexicon, crypto lexicon + rewrite, "$TICK", and bare "TICK verb".
func (p *StocksProvider) detectTickers(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	lower := strings.ToLower(query)
	words := strings.Fields(lower)
	names := make([]string, 0, len(companyLexicon))
	for name := range companyLexicon {
		names = append(names, name)
	}
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"")
		matches := fuzzy.Find(w, names)
		if len(matches) > 0 && matches[0].Score > 0 {
			add(companyLexicon[matches[0].Str])
		}
	}

	for name, symbol := range cryptoRewrite {
		if strings.Contains(lower, name) {
			add(symbol)
		}
	}

	for _, m := range dollarTickerRe.FindAllStringSubmatch(query, -1) {
		add(m[1])
	}

	for _, m := range bareTickerRe.FindAllStringSubmatch(query, -1) {
		ticker := m[1]
		if _, stop := tradeVerbStopList[ticker]; stop {
			continue
		}
		add(ticker)
	}

	return out
}

// HTTPQuoteFetcher fetches previous-close quotes from a REST quote API.
type HTTPQuoteFetcher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPQuoteFetcher constructs a fetcher against a quote API compatible
// with the common "previous close" shape (e.g. Polygon.io-style).
func NewHTTPQuoteFetcher(baseURL, apiKey string) *HTTPQuoteFetcher {
	return &HTTPQuoteFetcher{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetHTTPClient overrides the fetcher's client, e.g. with a
// ratelimit.WrapClient-wrapped one.
func (f *HTTPQuoteFetcher) SetHTTPClient(c *http.Client) { f.httpClient = c }

type quoteAPIResponse struct {
	Results []struct {
		Close float64 `json:"c"`
		Open  float64 `json:"o"`
	} `json:"results"`
}

func (f *HTTPQuoteFetcher) PreviousClose(ctx context.Context, ticker string) (float64, float64, error) {
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?apiKey=%s", f.baseURL, ticker, f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("stocks: quote API returned %d", resp.StatusCode)
	}

	var parsed quoteAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, err
	}
	if len(parsed.Results) == 0 || parsed.Results[0].Open == 0 {
		return 0, 0, fmt.Errorf("stocks: no results for %s", ticker)
	}
	close := parsed.Results[0].Close
	pct := (close - parsed.Results[0].Open) / parsed.Results[0].Open * 100
	return close, pct, nil
}
