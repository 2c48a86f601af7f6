package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	weatherLocationRe = regexp.MustCompile(`(?i)weather\s+(?:in|for|at)\s+([a-zA-Z .,'-]+)`)
	forecastWordsRe   = regexp.MustCompile(`(?i)\b(forecast|week|tomorrow|next|days)\b`)
)

// GeoLookup resolves a free-text location to coordinates.
type GeoLookup interface {
	Geocode(ctx context.Context, location string) (lat, lon float64, resolvedName string, err error)
}

// ConditionsFetcher retrieves current and forecast conditions in
// Fahrenheit, mirroring the original's unconditional imperial-unit output.
type ConditionsFetcher interface {
	Current(ctx context.Context, lat, lon float64) (tempF float64, summary string, err error)
	Forecast(ctx context.Context, lat, lon float64, days int) ([]DailyForecast, error)
}

// DailyForecast is one day of a multi-day outlook.
type DailyForecast struct {
	Day     string
	HighF   float64
	LowF    float64
	Summary string
}

// WeatherProvider implements Provider for current conditions and optional
// 5-day forecasts (§4.3.2). Temperatures are always Fahrenheit.
type WeatherProvider struct {
	geo       GeoLookup
	fetcher   ConditionsFetcher
	available bool
}

func NewWeatherProvider(geo GeoLookup, fetcher ConditionsFetcher, available bool) *WeatherProvider {
	return &WeatherProvider{geo: geo, fetcher: fetcher, available: available}
}

func (p *WeatherProvider) Name() string    { return "weather" }
func (p *WeatherProvider) Available() bool { return p.available && p.geo != nil && p.fetcher != nil }

func (p *WeatherProvider) IsRelevant(query string) bool {
	return weatherLocationRe.MatchString(query)
}

func (p *WeatherProvider) LookupForPrompt(ctx context.Context, query string) (bool, string) {
	m := weatherLocationRe.FindStringSubmatch(query)
	if m == nil {
		return false, ""
	}
	location := strings.TrimSpace(m[1])

	lat, lon, resolved, err := p.geo.Geocode(ctx, location)
	if err != nil {
		return false, ""
	}

	tempF, summary, err := p.fetcher.Current(ctx, lat, lon)
	if err != nil {
		return false, ""
	}

	line := fmt.Sprintf("Weather in %s: %.0f°F, %s", resolved, tempF, summary)

	if forecastWordsRe.MatchString(query) {
		days, ferr := p.fetcher.Forecast(ctx, lat, lon, 5)
		if ferr == nil && len(days) > 0 {
			var sb strings.Builder
			sb.WriteString(line)
			for _, d := range days {
				sb.WriteString(fmt.Sprintf("\n%s: high %.0f°F, low %.0f°F, %s", d.Day, d.HighF, d.LowF, d.Summary))
			}
			return true, sb.String()
		}
	}

	return true, line
}

// HTTPGeoLookup geocodes via a free-text "city, state/country" geocoding
// endpoint (e.g. Open-Meteo's geocoding API, which needs no API key).
type HTTPGeoLookup struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPGeoLookup(baseURL string) *HTTPGeoLookup {
	return &HTTPGeoLookup{baseURL: baseURL, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// SetHTTPClient overrides the lookup's client, e.g. with a
// ratelimit.WrapClient-wrapped one.
func (g *HTTPGeoLookup) SetHTTPClient(c *http.Client) { g.httpClient = c }

type geoAPIResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Admin1    string  `json:"admin1"`
		Country   string  `json:"country"`
	} `json:"results"`
}

func (g *HTTPGeoLookup) Geocode(ctx context.Context, location string) (float64, float64, string, error) {
	u := fmt.Sprintf("%s/v1/search?name=%s&count=1", g.baseURL, url.QueryEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, 0, "", err
	}
	defer resp.Body.Close()

	var parsed geoAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, "", err
	}
	if len(parsed.Results) == 0 {
		return 0, 0, "", fmt.Errorf("weather: no geocode match for %q", location)
	}
	r := parsed.Results[0]
	name := r.Name
	if r.Admin1 != "" {
		name = name + ", " + r.Admin1
	}
	return r.Latitude, r.Longitude, name, nil
}

// HTTPConditionsFetcher retrieves current/forecast conditions, converting
// the provider's native Celsius output to Fahrenheit.
type HTTPConditionsFetcher struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPConditionsFetcher(baseURL string) *HTTPConditionsFetcher {
	return &HTTPConditionsFetcher{baseURL: baseURL, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// SetHTTPClient overrides the fetcher's client, e.g. with a
// ratelimit.WrapClient-wrapped one.
func (f *HTTPConditionsFetcher) SetHTTPClient(c *http.Client) { f.httpClient = c }

type conditionsAPIResponse struct {
	Current struct {
		TemperatureC float64 `json:"temperature_2m"`
		WeatherCode  int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Time   []string  `json:"time"`
		HighC  []float64 `json:"temperature_2m_max"`
		LowC   []float64 `json:"temperature_2m_min"`
		WCodes []int     `json:"weather_code"`
	} `json:"daily"`
}

func celsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

func weatherCodeSummary(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "foggy"
	case code <= 67:
		return "rainy"
	case code <= 77:
		return "snowy"
	case code <= 82:
		return "rain showers"
	default:
		return "stormy"
	}
}

func (f *HTTPConditionsFetcher) Current(ctx context.Context, lat, lon float64) (float64, string, error) {
	u := fmt.Sprintf("%s/v1/forecast?latitude=%f&longitude=%f&current=temperature_2m,weather_code", f.baseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var parsed conditionsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, "", err
	}
	return celsiusToFahrenheit(parsed.Current.TemperatureC), weatherCodeSummary(parsed.Current.WeatherCode), nil
}

func (f *HTTPConditionsFetcher) Forecast(ctx context.Context, lat, lon float64, days int) ([]DailyForecast, error) {
	u := fmt.Sprintf("%s/v1/forecast?latitude=%f&longitude=%f&daily=temperature_2m_max,temperature_2m_min,weather_code&forecast_days=%d", f.baseURL, lat, lon, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed conditionsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]DailyForecast, 0, len(parsed.Daily.Time))
	for i := range parsed.Daily.Time {
		out = append(out, DailyForecast{
			Day:     parsed.Daily.Time[i],
			HighF:   celsiusToFahrenheit(valueOr(parsed.Daily.HighC, i)),
			LowF:    celsiusToFahrenheit(valueOr(parsed.Daily.LowC, i)),
			Summary: weatherCodeSummary(valueOrInt(parsed.Daily.WCodes, i)),
		})
	}
	return out, nil
}

func valueOr(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func valueOrInt(s []int, i int) int {
	if i < len(s) {
		return s[i]
	}
	return 0
}
