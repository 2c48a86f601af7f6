package main

import (
	"github.com/ember-run/ember/internal/config"
	"github.com/ember-run/ember/internal/knowledge"
	"github.com/ember-run/ember/internal/ratelimit"
)

// Default upstream endpoints for the providers that ship a concrete HTTP
// implementation. Open-Meteo needs no API key; the quote API follows the
// Polygon.io "previous close" shape HTTPQuoteFetcher already targets.
const (
	defaultGeocodeBaseURL    = "https://geocoding-api.open-meteo.com"
	defaultConditionsBaseURL = "https://api.open-meteo.com"
	defaultQuoteBaseURL      = "https://api.polygon.io"
)

// buildKnowledgeRouter wires the config-enabled providers that have a
// concrete HTTP implementation, each routed through the shared limiter so
// a single provider's quota can't be exhausted by the others. Providers
// without a built-in HTTP fetcher (encyclopedia, news, tech pulse, cyber,
// and web's search backend) stay nil until a concrete fetcher is wired in;
// Router already skips nil providers.
func buildKnowledgeRouter(cfg config.KnowledgeConfig, limiter *ratelimit.Limiter) *knowledge.Router {
	var stocks knowledge.Provider
	if cfg.Stocks.Enabled {
		fetcher := knowledge.NewHTTPQuoteFetcher(defaultQuoteBaseURL, cfg.Stocks.APIKey)
		fetcher.SetHTTPClient(ratelimit.WrapClient(limiter, "stocks", nil))
		stocks = knowledge.NewStocksProvider(fetcher, true)
	}

	var weather knowledge.Provider
	if cfg.Weather.Enabled {
		geo := knowledge.NewHTTPGeoLookup(defaultGeocodeBaseURL)
		geo.SetHTTPClient(ratelimit.WrapClient(limiter, "weather", nil))
		conditions := knowledge.NewHTTPConditionsFetcher(defaultConditionsBaseURL)
		conditions.SetHTTPClient(ratelimit.WrapClient(limiter, "weather", nil))
		weather = knowledge.NewWeatherProvider(geo, conditions, true)
	}

	// Encyclopedia, news, tech pulse, cyber, and web have no concrete HTTP
	// fetcher wired yet (no SearchFetcher/SummaryFetcher/etc. implementation
	// exists), so they stay nil; Router skips nil providers.
	return knowledge.NewRouter(stocks, weather, nil, nil, nil, nil, nil)
}
