package tokenizer

import (
	"fmt"
)

// Counter counts tokens of a text.
// Implementations must be safe for concurrent use.
type Counter interface {
	// CountTokens returns the number of tokens of the text.
	CountTokens(text string) (int, error)

	// Name returns the name of the counter.
	Name() string
}

const (
	TypeTiktoken  = "tiktoken"
	TypeEstimator = "estimator"
)

// Config selects and configures the counter.
type Config struct {
	// Type is tiktoken or estimator.
	Type string `conf:"type" yaml:"type" json:"type"`

	// Model picks the tiktoken encoding, unknown models use cl100k_base.
	Model string `conf:"model" yaml:"model" json:"model"`

	// Encoding overrides the encoding picked from the model.
	Encoding string `conf:"encoding" yaml:"encoding" json:"encoding"`

	// CacheSize bounds the registry lookup cache.
	CacheSize int `conf:"cache_size" yaml:"cache_size" json:"cache_size"`
}

// New creates the counter described by the config.
// A tiktoken counter falls back to the estimator when its encoding can not be loaded.
func New(cfg Config) (Counter, error) {
	switch cfg.Type {
	case TypeTiktoken, "":
		return WithFallback(NewTiktokenCounter(cfg.Model, cfg.Encoding), NewEstimatorCounter()), nil
	case TypeEstimator:
		return NewEstimatorCounter(), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer type: %s", cfg.Type)
	}
}

// WithFallback returns a counter using primary and switching to fallback when primary fails.
func WithFallback(primary, fallback Counter) Counter {
	return &fallbackCounter{primary: primary, fallback: fallback}
}

type fallbackCounter struct {
	primary  Counter
	fallback Counter
}

func (c *fallbackCounter) CountTokens(text string) (int, error) {
	n, err := c.primary.CountTokens(text)
	if err == nil {
		return n, nil
	}

	return c.fallback.CountTokens(text)
}

func (c *fallbackCounter) Name() string {
	return c.primary.Name()
}
