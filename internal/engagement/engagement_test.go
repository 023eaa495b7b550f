package engagement

import (
	"context"
	"strings"
	"testing"

	"github.com/chapelleverte/petitiond/internal/model"
	"github.com/chapelleverte/petitiond/internal/sentiment"
)

func testCalculator() *Calculator {
	return NewCalculator(sentiment.NewRuleBased())
}

func TestBareSignatureIsBasic(t *testing.T) {
	c := testCalculator()

	details, err := c.Calculate(context.Background(), model.Signature{
		FirstName: "Marie",
		LastName:  "Dupont",
		Email:     "marie@example.com",
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if details.Score != 0 {
		t.Errorf("score = %d, want 0", details.Score)
	}
	if details.Level != model.LevelBasic {
		t.Errorf("level = %q, want %q", details.Level, model.LevelBasic)
	}
	if details.Sentiment != nil {
		t.Errorf("sentiment = %+v, want nil for empty comment", details.Sentiment)
	}
}

func TestRichSignatureAboveBasic(t *testing.T) {
	c := testCalculator()

	comment := "J'adore cette initiative, c'est merveilleux! " +
		"La chapelle fait partie de notre patrimoine et ce projet de reconversion " +
		"est une chance magnifique pour tout le village."

	details, err := c.Calculate(context.Background(), model.Signature{
		Email:      "paul@example.com",
		Comment:    comment,
		Newsletter: true,
		Shares:     []string{"twitter", "facebook", "linkedin"},
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if details.Level == model.LevelBasic {
		t.Errorf("level = %q, want above %q", details.Level, model.LevelBasic)
	}
	if GenerationsForLevel(details.Level) <= GenerationsForLevel(model.LevelBasic) {
		t.Errorf("generations = %d, want more than basic %d",
			GenerationsForLevel(details.Level), GenerationsForLevel(model.LevelBasic))
	}
}

func TestCommentLengthMonotonic(t *testing.T) {
	c := testCalculator()
	ctx := context.Background()

	// Use a neutral filler word so sentiment stays constant across lengths.
	short := strings.Repeat("chapelle ", 3)   // < 50 chars
	medium := strings.Repeat("chapelle ", 12) // 51-150 chars
	long := strings.Repeat("chapelle ", 20)   // > 150 chars

	prev := -1
	for _, comment := range []string{"", short, medium, long} {
		details, err := c.Calculate(ctx, model.Signature{Email: "a@b.fr", Comment: comment})
		if err != nil {
			t.Fatalf("calculate: %v", err)
		}
		if details.Score < prev {
			t.Errorf("score %d for %d-char comment below previous %d", details.Score, len(comment), prev)
		}
		prev = details.Score
	}
}

func TestCommentLengthCountsCharacters(t *testing.T) {
	c := testCalculator()
	ctx := context.Background()

	// Same character count, but the accented comment is twice as many bytes.
	accented := strings.Repeat("éèêëàâîï ", 5) // 45 chars, 85 bytes
	plain := strings.Repeat("abcdefgh ", 5)    // 45 chars, 45 bytes

	accentedDetails, err := c.Calculate(ctx, model.Signature{Email: "a@b.fr", Comment: accented})
	if err != nil {
		t.Fatalf("calculate accented: %v", err)
	}
	plainDetails, err := c.Calculate(ctx, model.Signature{Email: "a@b.fr", Comment: plain})
	if err != nil {
		t.Fatalf("calculate plain: %v", err)
	}
	if accentedDetails.Score != plainDetails.Score {
		t.Errorf("accented comment score = %d, plain same-length comment = %d", accentedDetails.Score, plainDetails.Score)
	}
}

func TestSignalsNeverDecreaseScore(t *testing.T) {
	c := testCalculator()
	ctx := context.Background()

	base := model.Signature{Email: "a@b.fr", Comment: "une belle initiative pour le village"}
	baseDetails, err := c.Calculate(ctx, base)
	if err != nil {
		t.Fatalf("calculate base: %v", err)
	}

	variants := []model.Signature{
		{Email: "a@b.fr", Comment: base.Comment, Newsletter: true},
		{Email: "a@b.fr", Comment: base.Comment, Shares: []string{"twitter"}},
		{Email: "a@b.fr", Comment: base.Comment, ReferralCode: "MAR-X7K2P"},
	}
	for _, sig := range variants {
		details, err := c.Calculate(ctx, sig)
		if err != nil {
			t.Fatalf("calculate variant: %v", err)
		}
		if details.Score < baseDetails.Score {
			t.Errorf("variant %+v score = %d, below base %d", sig, details.Score, baseDetails.Score)
		}
	}
}

func TestSocialShareBonusIsFlat(t *testing.T) {
	c := testCalculator()
	ctx := context.Background()

	one, _ := c.Calculate(ctx, model.Signature{Email: "a@b.fr", Shares: []string{"twitter"}})
	three, _ := c.Calculate(ctx, model.Signature{Email: "a@b.fr", Shares: []string{"twitter", "facebook", "instagram"}})

	if one.Score != three.Score {
		t.Errorf("one share score = %d, three shares = %d, want equal", one.Score, three.Score)
	}
}

func TestLevelForScoreStepFunction(t *testing.T) {
	tests := []struct {
		score int
		want  model.CouponLevel
	}{
		{0, model.LevelBasic},
		{4, model.LevelBasic},
		{5, model.LevelEngaged},
		{9, model.LevelEngaged},
		{10, model.LevelPassionate},
		{14, model.LevelPassionate},
		{15, model.LevelChampion},
		{100, model.LevelChampion},
	}
	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}

	// Non-decreasing over a dense range.
	rank := map[model.CouponLevel]int{
		model.LevelBasic:      0,
		model.LevelEngaged:    1,
		model.LevelPassionate: 2,
		model.LevelChampion:   3,
	}
	prev := 0
	for score := 0; score <= 30; score++ {
		r := rank[LevelForScore(score)]
		if r < prev {
			t.Fatalf("level rank decreased at score %d", score)
		}
		prev = r
	}
}

func TestGenerationsForLevel(t *testing.T) {
	if got := GenerationsForLevel(model.LevelBasic); got != 2 {
		t.Errorf("basic generations = %d, want 2", got)
	}
	if got := GenerationsForLevel(model.LevelChampion); got != 4 {
		t.Errorf("champion generations = %d, want 4", got)
	}
	if got := GenerationsForLevel(model.CouponLevel("bogus")); got != 2 {
		t.Errorf("unknown level generations = %d, want basic fallback 2", got)
	}
}
