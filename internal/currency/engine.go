// Package currency converts and formats monetary amounts, shielding
// callers from live exchange-rate outages. The engine's contract is
// that Convert always returns a number and Format always returns a
// string; fetch and cache failures are logged and absorbed.
package currency

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency all amounts are persisted in.
const BaseCurrency = "BRL"

// ratesCacheKey is the single fixed key the last fetched table is
// persisted under.
const ratesCacheKey = "exchange_rates"

// State describes which arm of the rate fallback chain the engine is
// currently on.
type State int

const (
	// StateFresh means the cached table is within its TTL.
	StateFresh State = iota
	// StateStale means conversions are using an expired cached table.
	StateStale
	// StateRefreshing means a live fetch is in flight.
	StateRefreshing
	// StateFallback means no table was ever cached and the built-in
	// defaults are in use.
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRefreshing:
		return "refreshing"
	case StateFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// DefaultTable returns the built-in rate table used when no live or
// cached rates are available.
func DefaultTable() model.RateTable {
	return model.RateTable{
		Base:  BaseCurrency,
		Rates: map[string]float64{"BRL": 1, "USD": 0.20, "EUR": 0.19},
	}
}

// Engine converts and formats amounts using a TTL-bounded rate cache.
type Engine struct {
	source service.RateSource
	kv     service.KeyValueStore
	base   string

	mu     sync.Mutex
	tables map[string]model.RateTable // memory cache, keyed by base
	state  State

	now func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithBase overrides the pivot base currency.
func WithBase(base string) Option {
	return func(e *Engine) { e.base = base }
}

// WithClock overrides the engine's clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a currency engine. kv may be nil, in which case
// rate tables only live in memory.
func NewEngine(source service.RateSource, kv service.KeyValueStore, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		kv:     kv,
		base:   BaseCurrency,
		tables: make(map[string]model.RateTable),
		state:  StateFallback,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the engine's current fallback-chain state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Rates returns the rate table for base, fetching only when the cached
// table has expired. It never returns an error: on fetch failure the
// stale cached table is returned if one exists, otherwise the built-in
// defaults.
func (e *Engine) Rates(ctx context.Context, base string) model.RateTable {
	e.mu.Lock()
	if t, ok := e.tables[base]; ok && t.FreshAt(e.now()) {
		e.state = StateFresh
		e.mu.Unlock()
		return t.Clone()
	}
	e.mu.Unlock()

	// A durable copy may outlive the process that fetched it.
	if t, ok := e.loadDurable(ctx, base); ok && t.FreshAt(e.now()) {
		e.mu.Lock()
		e.tables[base] = t.Clone()
		e.state = StateFresh
		e.mu.Unlock()
		return t
	}

	return e.refresh(ctx, base)
}

// refresh performs a live fetch and runs the fallback chain on failure.
func (e *Engine) refresh(ctx context.Context, base string) model.RateTable {
	e.mu.Lock()
	e.state = StateRefreshing
	e.mu.Unlock()

	table, err := e.source.FetchRates(ctx, base)
	if err == nil {
		table.FetchedAt = e.now()
		e.storeDurable(ctx, table)
		e.mu.Lock()
		e.tables[base] = table.Clone()
		e.state = StateFresh
		e.mu.Unlock()
		return table
	}

	slog.Warn("live rate fetch failed, falling back",
		"base", base,
		"error", err)

	// Stale data beats no data.
	e.mu.Lock()
	if t, ok := e.tables[base]; ok {
		e.state = StateStale
		cp := t.Clone()
		e.mu.Unlock()
		return cp
	}
	e.mu.Unlock()

	if t, ok := e.loadDurable(ctx, base); ok {
		e.mu.Lock()
		e.tables[base] = t.Clone()
		e.state = StateStale
		e.mu.Unlock()
		return t
	}

	e.mu.Lock()
	e.state = StateFallback
	e.mu.Unlock()
	return DefaultTable()
}

// Convert expresses amount, given in the from currency, in the to
// currency. It never returns an error: when a rate is missing even
// after one forced refresh, the amount comes back unchanged.
func (e *Engine) Convert(ctx context.Context, amount float64, from, to string) float64 {
	if from == to {
		return amount
	}

	table := e.Rates(ctx, e.base)
	if v, ok := convertWith(table, amount, from, to); ok {
		return v
	}

	// One refresh attempt before giving up on the conversion.
	table = e.refresh(ctx, e.base)
	if v, ok := convertWith(table, amount, from, to); ok {
		return v
	}

	slog.Warn("missing exchange rate, returning amount unconverted",
		"from", from,
		"to", to,
		"base", table.Base)
	return amount
}

// convertWith pivots amount through the table's declared base.
func convertWith(table model.RateTable, amount float64, from, to string) (float64, bool) {
	value := decimal.NewFromFloat(amount)

	if from != table.Base {
		rate, ok := table.Rate(from)
		if !ok {
			return 0, false
		}
		value = value.Div(decimal.NewFromFloat(rate))
	}
	if to != table.Base {
		rate, ok := table.Rate(to)
		if !ok {
			return 0, false
		}
		value = value.Mul(decimal.NewFromFloat(rate))
	}

	result, _ := value.Float64()
	return result, true
}

// Format renders the absolute value of amount with the currency's
// separators and symbol. A leading minus sign, when wanted, is
// prepended by the caller.
func (e *Engine) Format(amount float64, code string) string {
	return FormatFor(code).render(amount)
}

// loadDurable reads the persisted table, if it exists and matches base.
func (e *Engine) loadDurable(ctx context.Context, base string) (model.RateTable, bool) {
	if e.kv == nil {
		return model.RateTable{}, false
	}
	data, err := e.kv.Get(ctx, ratesCacheKey)
	if err != nil {
		return model.RateTable{}, false
	}
	var table model.RateTable
	if err := json.Unmarshal(data, &table); err != nil {
		slog.Warn("discarding corrupt cached rate table", "error", err)
		return model.RateTable{}, false
	}
	if table.Base != base || len(table.Rates) == 0 {
		return model.RateTable{}, false
	}
	return table, true
}

// storeDurable persists the table under the fixed cache key. Failures
// only cost durability, so they are logged and absorbed.
func (e *Engine) storeDurable(ctx context.Context, table model.RateTable) {
	if e.kv == nil {
		return
	}
	data, err := json.Marshal(table)
	if err != nil {
		slog.Warn("failed to encode rate table for cache", "error", err)
		return
	}
	if err := e.kv.Put(ctx, ratesCacheKey, data); err != nil {
		slog.Warn("failed to persist rate table", "error", err)
	}
}
