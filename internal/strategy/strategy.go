// Package strategy
package strategy

import "postmorty/internal/indicator"

// Strategy analyzes a symbol's derived record history and scores its setup.
type Strategy interface {
	Name() string
	// MinBars is the history length below which Analyze returns an empty result.
	MinBars() int
	Analyze(symbol string, records []indicator.Record) Result
}

// Result is one symbol's scan outcome: a composite buy score, the signals
// that fired, and whatever metadata the strategy wants to surface.
type Result struct {
	Symbol   string         `json:"symbol"`
	Score    float64        `json:"score"`
	Signals  []string       `json:"signals"`
	Metadata map[string]any `json:"metadata"`
}
