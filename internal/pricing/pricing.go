package pricing

import (
	"sort"
	"strings"
	"sync"
)

// Table holds per-provider model pricing. It is safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	providers map[string]map[string]ModelPricing
}

// NewTable returns a table seeded with the default provider prices.
func NewTable() *Table {
	return &Table{providers: defaultProviders()}
}

// CalculateCost returns the USD cost of a call. Unknown providers cost nothing.
func (t *Table) CalculateCost(provider, model string, tokensIn, tokensOut int64) float64 {
	p, ok := t.Lookup(provider, model)
	if !ok {
		return 0
	}
	return float64(tokensIn)/1000.0*p.InputPer1K + float64(tokensOut)/1000.0*p.OutputPer1K
}

// Lookup resolves the exact model, then the lower-cased model, then the wildcard.
func (t *Table) Lookup(provider, model string) (ModelPricing, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models, ok := t.providers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return ModelPricing{}, false
	}
	if p, ok := models[model]; ok {
		return p, true
	}
	if p, ok := models[strings.ToLower(model)]; ok {
		return p, true
	}
	p, ok := models[Wildcard]
	return p, ok
}

func (t *Table) Set(provider, model string, p ModelPricing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(provider, model, p)
}

func (t *Table) setLocked(provider, model string, p ModelPricing) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if t.providers[provider] == nil {
		t.providers[provider] = make(map[string]ModelPricing)
	}
	t.providers[provider][model] = p
}

// Providers returns configured providers sorted by name.
func (t *Table) Providers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.providers))
	for provider := range t.providers {
		out = append(out, provider)
	}
	sort.Strings(out)
	return out
}

// Models returns the explicit models of a provider, sorted, without the wildcard.
func (t *Table) Models(provider string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models := t.providers[strings.ToLower(strings.TrimSpace(provider))]
	out := make([]string, 0, len(models))
	for model := range models {
		if model != Wildcard {
			out = append(out, model)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a deep copy of the table.
func (t *Table) Snapshot() map[string]map[string]ModelPricing {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]map[string]ModelPricing, len(t.providers))
	for provider, models := range t.providers {
		out[provider] = make(map[string]ModelPricing, len(models))
		for model, p := range models {
			out[provider][model] = p
		}
	}
	return out
}

func (t *Table) merge(custom fileFormat) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for provider, models := range custom.Providers {
		for model, p := range models {
			t.setLocked(provider, model, p)
		}
	}
}
