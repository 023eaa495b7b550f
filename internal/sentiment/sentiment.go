package sentiment

import (
	"context"
	"math"
)

type Polarity string

const (
	Positive Polarity = "positive"
	Neutral  Polarity = "neutral"
	Negative Polarity = "negative"
)

// Result is the outcome of analyzing one free-text comment.
type Result struct {
	Sentiment  Polarity `json:"sentiment"`
	Score      int      `json:"score"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords,omitempty"`
}

// Analyzer classifies a petition comment. Implementations must return the
// zero-signal result (neutral, 0, 0, nil) for empty or whitespace-only input.
type Analyzer interface {
	Analyze(ctx context.Context, comment string) (Result, error)
}

// bonusBase is the engagement bonus granted per polarity before the
// confidence multiplier is applied.
var bonusBase = map[Polarity]float64{
	Positive: 2,
	Neutral:  1,
	Negative: 0,
}

// bonusScore computes the engagement bonus for a classified comment.
// Positive comments scale with confidence; neutral and negative do not.
func bonusScore(p Polarity, confidence float64) int {
	multiplier := 1.0
	if p == Positive {
		multiplier = 1 + confidence
	}
	return int(math.Round(bonusBase[p] * multiplier))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
