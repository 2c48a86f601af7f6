// Package cortex implements the five-layer decaying memory described in
// §4.4: FLASH and WORKING live in process memory; SHORT_TERM, LONG_TERM,
// and ARCHIVE are durable and backed by the permanent store.
package cortex

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Layer identifies one of the five memory tiers.
type Layer string

const (
	LayerFlash     Layer = "FLASH"
	LayerWorking   Layer = "WORKING"
	LayerShortTerm Layer = "SHORT_TERM"
	LayerLongTerm  Layer = "LONG_TERM"
	LayerArchive   Layer = "ARCHIVE"
)

// LayerConfig captures the per-layer capacity/decay/promotion numbers from
// the §4.4 table.
type LayerConfig struct {
	MaxItems            int
	DecayRatePerHour    float64
	PromotionImportance float64
}

// Layers is the fixed configuration table from §4.4.
var Layers = map[Layer]LayerConfig{
	LayerFlash:     {MaxItems: 100, DecayRatePerHour: decayPerMinuteToHourly(0.90), PromotionImportance: 3},
	LayerWorking:   {MaxItems: 500, DecayRatePerHour: 0.50, PromotionImportance: 5},
	LayerShortTerm: {MaxItems: 2000, DecayRatePerHour: decayPerDayToHourly(0.25), PromotionImportance: 7},
	LayerLongTerm:  {MaxItems: 50000, DecayRatePerHour: decayPerMonthToHourly(0.05), PromotionImportance: 8},
	LayerArchive:   {MaxItems: 100000, DecayRatePerHour: decayPerYearToHourly(0.01)},
}

func decayPerMinuteToHourly(perMinute float64) float64 { return perMinute * 60 }
func decayPerDayToHourly(perDay float64) float64       { return perDay / 24 }
func decayPerMonthToHourly(perMonth float64) float64   { return perMonth / (30 * 24) }
func decayPerYearToHourly(perYear float64) float64     { return perYear / (365 * 24) }

// Item is one memory record as it flows through the tiers.
type Item struct {
	ID           string
	Content      string
	Keywords     []string
	Importance   float64
	Layer        Layer
	CreatedAt    time.Time
	PromotedAt   time.Time
	LastAccessed time.Time
	AccessCount  int
}

// NewItem constructs a FLASH item with computed keywords.
func NewItem(content string, importance float64, createdAt time.Time) *Item {
	return &Item{
		ID:           uuid.NewString(),
		Content:      content,
		Keywords:     tokenize(content),
		Importance:   importance,
		Layer:        LayerFlash,
		CreatedAt:    createdAt,
		PromotedAt:   createdAt,
		LastAccessed: createdAt,
	}
}

// tokenize lower-cases and splits on non-alphanumeric boundaries, matching
// the simple bag-of-words model recall uses for token-overlap matching.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// matchesTokens reports whether any of tokens appears in the item's
// content words or keywords.
func (it *Item) matchesTokens(tokens []string) bool {
	for _, t := range tokens {
		for _, k := range it.Keywords {
			if k == t {
				return true
			}
		}
	}
	return false
}
