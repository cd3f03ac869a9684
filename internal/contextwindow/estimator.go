package contextwindow

import "unicode/utf8"

// CostEstimator approximates the token cost of a piece of text.
// Implementations must be deterministic for a given input.
type CostEstimator interface {
	Estimate(text string) int
}

// ApproxEstimator charges ceil(characters/4) tokens per text.
type ApproxEstimator struct{}

// Estimate returns ceil(rune count / 4).
func (ApproxEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// EstimatorFunc adapts a plain function to CostEstimator.
type EstimatorFunc func(string) int

func (f EstimatorFunc) Estimate(text string) int { return f(text) }
