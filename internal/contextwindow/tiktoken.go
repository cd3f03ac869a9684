package contextwindow

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used for local models whose tokenizer is unknown.
const DefaultEncoding = "cl100k_base"

// TiktokenEstimator counts tokens with a BPE encoding.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the named encoding (DefaultEncoding when empty).
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

// Estimate returns the exact BPE token count, falling back to the
// character heuristic if the encoding was never loaded.
func (t *TiktokenEstimator) Estimate(text string) int {
	if t == nil || t.enc == nil {
		return ApproxEstimator{}.Estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// NewEstimator resolves a tokenizer name from configuration.
// "tiktoken" selects TiktokenEstimator; anything else selects ApproxEstimator.
// A tiktoken load failure degrades to ApproxEstimator and is returned as err
// so the caller can log it.
func NewEstimator(name string) (CostEstimator, error) {
	if name != "tiktoken" {
		return ApproxEstimator{}, nil
	}
	est, err := NewTiktokenEstimator(DefaultEncoding)
	if err != nil {
		return ApproxEstimator{}, err
	}
	return est, nil
}
