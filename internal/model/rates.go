package model

import "time"

// RateTTL is how long a fetched rate table is considered fresh.
const RateTTL = 6 * time.Hour

// RateTable holds exchange rates relative to a single base currency.
// Each rate is the number of units of that currency per one unit of
// the base. Rates[Base], when present, is 1.
type RateTable struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// FreshAt reports whether the table is still within its TTL at now.
func (t RateTable) FreshAt(now time.Time) bool {
	if t.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(t.FetchedAt) < RateTTL
}

// Rate returns the factor for code. The second result is false when
// the code is absent or the stored factor is not a positive number.
func (t RateTable) Rate(code string) (float64, bool) {
	r, ok := t.Rates[code]
	if !ok || r <= 0 {
		return 0, false
	}
	return r, true
}

// Clone returns a deep copy so callers cannot mutate the cached table.
func (t RateTable) Clone() RateTable {
	rates := make(map[string]float64, len(t.Rates))
	for k, v := range t.Rates {
		rates[k] = v
	}
	return RateTable{Base: t.Base, Rates: rates, FetchedAt: t.FetchedAt}
}
