package tokenizer

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

// Registry maps model names to counters.
// Lookups match the exact model first, then the longest registered prefix.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]Counter
	fallback Counter
	resolved *lru.Cache[string, Counter]
}

// NewRegistry creates a registry returning fallback for unknown models.
func NewRegistry(fallback Counter, cacheSize int) *Registry {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	// Only fails on a non positive size.
	resolved, _ := lru.New[string, Counter](cacheSize)

	return &Registry{
		counters: make(map[string]Counter),
		fallback: fallback,
		resolved: resolved,
	}
}

// Register registers the counter for the model name or prefix.
func (r *Registry) Register(model string, counter Counter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[model] = counter
	r.resolved.Purge()
}

// Lookup returns the counter for the model.
// The second return value is false when the fallback is returned.
func (r *Registry) Lookup(model string) (Counter, bool) {
	if c, ok := r.resolved.Get(model); ok {
		return c, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.counters[model]; ok {
		r.resolved.Add(model, c)
		return c, true
	}

	best := ""

	var found Counter

	for prefix, c := range r.counters {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
			found = c
		}
	}

	if found == nil {
		return r.fallback, false
	}

	r.resolved.Add(model, found)

	return found, true
}

// CounterFor returns the counter for the model, or the fallback.
func (r *Registry) CounterFor(model string) Counter {
	c, _ := r.Lookup(model)
	return c
}

// NewDefaultRegistry creates a registry using the configured counter as the fallback.
// Unless the estimator is configured, the OpenAI model families get their own tiktoken encoding.
func NewDefaultRegistry(cfg Config) (*Registry, error) {
	fallback, err := New(cfg)
	if err != nil {
		return nil, err
	}

	r := NewRegistry(fallback, cfg.CacheSize)

	if cfg.Type == TypeEstimator {
		return r, nil
	}

	estimator := NewEstimatorCounter()
	for prefix := range modelEncodings {
		r.Register(prefix, WithFallback(NewTiktokenCounter(prefix, ""), estimator))
	}

	return r, nil
}
