package marketdata

import (
	"time"

	"github.com/meenmo/mocurve/utils"
)

// FixingFeed supplies published index fixings for floating periods that have already reset.
type FixingFeed interface {
	RateOn(date time.Time) (float64, bool)
}

// MapFixingFeed is a static map-backed feed keyed by YYYY-MM-DD.
type MapFixingFeed struct {
	rates map[string]float64
}

// NewMapFixingFeed copies rates into a new feed. Rates are decimals (0.025 == 2.5%).
func NewMapFixingFeed(rates map[string]float64) *MapFixingFeed {
	m := make(map[string]float64, len(rates))
	for k, v := range rates {
		m[k] = v
	}
	return &MapFixingFeed{rates: m}
}

func (m *MapFixingFeed) RateOn(date time.Time) (float64, bool) {
	if m == nil {
		return 0, false
	}
	val, ok := m.rates[date.Format(utils.DateLayout)]
	return val, ok
}

// Len returns the number of fixings held by the feed.
func (m *MapFixingFeed) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rates)
}
