package engagement

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chapelleverte/petitiond/internal/model"
	"github.com/chapelleverte/petitiond/internal/sentiment"
)

// Details is the ephemeral scoring result computed once per signature.
type Details struct {
	Score     int               `json:"score"`
	Level     model.CouponLevel `json:"level"`
	Sentiment *sentiment.Result `json:"sentiment,omitempty"`
}

// LevelConfig binds a coupon level to its minimum score and the number of
// image generations it grants.
type LevelConfig struct {
	Level       model.CouponLevel
	MinScore    int
	Generations int
}

// Levels is the canonical scoring ladder, ordered by ascending MinScore.
var Levels = []LevelConfig{
	{Level: model.LevelBasic, MinScore: 0, Generations: 2},
	{Level: model.LevelEngaged, MinScore: 5, Generations: 2},
	{Level: model.LevelPassionate, MinScore: 10, Generations: 3},
	{Level: model.LevelChampion, MinScore: 15, Generations: 4},
}

// Signal weights.
const (
	shortCommentBonus  = 1 // 1-50 chars
	mediumCommentBonus = 2 // 51-150 chars
	longCommentBonus   = 3 // 151+ chars
	newsletterBonus    = 2
	socialShareBonus   = 2 // flat, regardless of share count
	referralBonus      = 2
)

// Calculator aggregates signature-time signals into a score and level.
type Calculator struct {
	analyzer sentiment.Analyzer
}

func NewCalculator(analyzer sentiment.Analyzer) *Calculator {
	return &Calculator{analyzer: analyzer}
}

// Calculate scores a signature. Same input always yields the same score
// and level for a deterministic analyzer.
func (c *Calculator) Calculate(ctx context.Context, sig model.Signature) (Details, error) {
	score := 0
	var sentimentResult *sentiment.Result

	comment := strings.TrimSpace(sig.Comment)
	if comment != "" {
		// Bucket by characters, not bytes: accented French text must not
		// jump a bucket.
		score += commentLengthBonus(utf8.RuneCountInString(comment))

		res, err := c.analyzer.Analyze(ctx, comment)
		if err != nil {
			return Details{}, fmt.Errorf("analyze comment: %w", err)
		}
		sentimentResult = &res
		score += res.Score
	}

	if sig.Newsletter {
		score += newsletterBonus
	}
	if len(sig.Shares) > 0 {
		score += socialShareBonus
	}
	if sig.ReferralCode != "" {
		score += referralBonus
	}

	return Details{
		Score:     score,
		Level:     LevelForScore(score),
		Sentiment: sentimentResult,
	}, nil
}

func commentLengthBonus(length int) int {
	switch {
	case length > 150:
		return longCommentBonus
	case length > 50:
		return mediumCommentBonus
	case length > 0:
		return shortCommentBonus
	default:
		return 0
	}
}

// LevelForScore returns the highest level whose threshold the score meets.
// It is a non-decreasing step function of score.
func LevelForScore(score int) model.CouponLevel {
	level := Levels[0].Level
	for _, cfg := range Levels {
		if score >= cfg.MinScore {
			level = cfg.Level
		}
	}
	return level
}

// GenerationsForLevel returns the generation allotment for a level.
// Unknown levels get the basic allotment.
func GenerationsForLevel(level model.CouponLevel) int {
	for _, cfg := range Levels {
		if cfg.Level == level {
			return cfg.Generations
		}
	}
	return Levels[0].Generations
}
