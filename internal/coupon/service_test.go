package coupon

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/chapelleverte/petitiond/internal/database"
	"github.com/chapelleverte/petitiond/internal/engagement"
	"github.com/chapelleverte/petitiond/internal/model"
	"github.com/chapelleverte/petitiond/internal/store"
)

func setupService(t *testing.T) (*Service, *store.CouponStore, *store.ReferralStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	coupons := store.NewCouponStore(db)
	referrals := store.NewReferralStore(db)
	return NewService(coupons, referrals, slog.Default()), coupons, referrals
}

func TestIssueBasicCoupon(t *testing.T) {
	svc, _, _ := setupService(t)

	sig := model.Signature{Email: "marie@example.com"}
	details := engagement.Details{Score: 0, Level: model.LevelBasic}

	c, err := svc.Issue(sig, details)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if c.TotalGenerations != 2 {
		t.Errorf("total_generations = %d, want 2", c.TotalGenerations)
	}
	if c.GenerationsLeft != c.TotalGenerations {
		t.Errorf("generations_left = %d, want %d", c.GenerationsLeft, c.TotalGenerations)
	}
	if c.Level != model.LevelBasic {
		t.Errorf("level = %q, want %q", c.Level, model.LevelBasic)
	}
	if !c.ExpiresAt.After(time.Now().Add(29 * 24 * time.Hour)) {
		t.Errorf("expires_at = %v, want ~30 days out", c.ExpiresAt)
	}
	if !WellFormed(FormatCode(c.Code)) {
		t.Errorf("code %q does not format to canonical form", c.Code)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	svc, _, _ := setupService(t)

	c, err := svc.Issue(model.Signature{Email: "a@b.fr"}, engagement.Details{Level: model.LevelBasic})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 5; i++ {
		result, err := svc.Validate(c.Code)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if !result.Valid {
			t.Fatalf("validate run %d: %+v", i, result)
		}
		if result.Coupon.GenerationsLeft != c.TotalGenerations {
			t.Errorf("run %d: generations_left = %d, want %d untouched",
				i, result.Coupon.GenerationsLeft, c.TotalGenerations)
		}
	}
}

func TestUseGenerationMonotonic(t *testing.T) {
	svc, _, _ := setupService(t)

	c, err := svc.Issue(model.Signature{Email: "a@b.fr"}, engagement.Details{Level: model.LevelChampion})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for want := c.TotalGenerations - 1; want >= 0; want-- {
		result, err := svc.UseGeneration(c.Code)
		if err != nil {
			t.Fatalf("use generation: %v", err)
		}
		if !result.Valid {
			t.Fatalf("use generation: %+v", result)
		}
		if result.Coupon.GenerationsLeft != want {
			t.Errorf("generations_left = %d, want %d", result.Coupon.GenerationsLeft, want)
		}
	}

	// Depleted from here on.
	for i := 0; i < 3; i++ {
		result, err := svc.UseGeneration(c.Code)
		if err != nil {
			t.Fatalf("use depleted: %v", err)
		}
		if result.Valid {
			t.Fatal("depleted coupon validated")
		}
		if result.Error != FailureDepleted {
			t.Errorf("error = %q, want %q", result.Error, FailureDepleted)
		}
	}
}

func TestValidateFailureTaxonomy(t *testing.T) {
	svc, coupons, _ := setupService(t)

	// no_code
	result, err := svc.Validate("   ")
	if err != nil {
		t.Fatalf("validate empty: %v", err)
	}
	if result.Valid || result.Error != FailureNoCode {
		t.Errorf("empty code result = %+v, want %q", result, FailureNoCode)
	}

	// invalid_code
	result, err = svc.Validate("ZZZZ-ZZZZ-ZZZZ")
	if err != nil {
		t.Fatalf("validate unknown: %v", err)
	}
	if result.Valid || result.Error != FailureInvalidCode {
		t.Errorf("unknown code result = %+v, want %q", result, FailureInvalidCode)
	}

	// expired beats depleted: expired coupon with generations left still fails.
	expired, err := coupons.Create("EXPIREDCODE2", model.LevelBasic, 2, "a@b.fr", 0, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("create expired coupon: %v", err)
	}
	if expired.GenerationsLeft == 0 {
		t.Fatal("expired coupon should still have generations")
	}
	result, err = svc.Validate(expired.Code)
	if err != nil {
		t.Fatalf("validate expired: %v", err)
	}
	if result.Valid || result.Error != FailureExpired {
		t.Errorf("expired result = %+v, want %q", result, FailureExpired)
	}
}

func TestValidateAcceptsGroupedAndBareCodes(t *testing.T) {
	svc, _, _ := setupService(t)

	c, err := svc.Issue(model.Signature{Email: "a@b.fr"}, engagement.Details{Level: model.LevelBasic})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	grouped := FormatCode(c.Code)
	for _, input := range []string{c.Code, grouped, "  " + grouped + " "} {
		result, err := svc.Validate(input)
		if err != nil {
			t.Fatalf("validate %q: %v", input, err)
		}
		if !result.Valid {
			t.Errorf("validate %q = %+v, want valid", input, result)
		}
	}
}

func TestReferralBonusCreditsReferrerCoupon(t *testing.T) {
	svc, coupons, referrals := setupService(t)

	// The referrer signs first and gets their stable code.
	referrerEmail := "referrer@example.com"
	issued, err := svc.Issue(model.Signature{Email: referrerEmail}, engagement.Details{Level: model.LevelBasic})
	if err != nil {
		t.Fatalf("issue referrer coupon: %v", err)
	}
	code, err := referrals.GetOrCreateCode(referrerEmail)
	if err != nil {
		t.Fatalf("get referral code: %v", err)
	}

	// Two referees sign with the code; each one lands a bonus generation
	// on the referrer's existing coupon.
	for _, email := range []string{"friend1@example.com", "friend2@example.com"} {
		_, err := svc.Issue(
			model.Signature{Email: email, ReferralCode: code.Code},
			engagement.Details{Level: model.LevelBasic},
		)
		if err != nil {
			t.Fatalf("issue referee coupon: %v", err)
		}
	}

	got, err := coupons.GetByCode(issued.Code)
	if err != nil {
		t.Fatalf("get referrer coupon: %v", err)
	}
	wantTotal := issued.TotalGenerations + 2*generationsPerReferral
	if got.TotalGenerations != wantTotal {
		t.Errorf("total_generations = %d, want %d", got.TotalGenerations, wantTotal)
	}
	if got.GenerationsLeft != issued.GenerationsLeft+2*generationsPerReferral {
		t.Errorf("generations_left = %d, want %d", got.GenerationsLeft, issued.GenerationsLeft+2*generationsPerReferral)
	}
}

func TestReferralBonusCapped(t *testing.T) {
	svc, coupons, referrals := setupService(t)

	referrerEmail := "referrer@example.com"
	issued, err := svc.Issue(model.Signature{Email: referrerEmail}, engagement.Details{Level: model.LevelBasic})
	if err != nil {
		t.Fatalf("issue referrer coupon: %v", err)
	}
	code, err := referrals.GetOrCreateCode(referrerEmail)
	if err != nil {
		t.Fatalf("get referral code: %v", err)
	}

	for i := 0; i < maxReferralBonus+2; i++ {
		_, err := svc.Issue(
			model.Signature{Email: fmt.Sprintf("friend%d@example.com", i), ReferralCode: code.Code},
			engagement.Details{Level: model.LevelBasic},
		)
		if err != nil {
			t.Fatalf("issue referee %d: %v", i, err)
		}
	}

	got, err := coupons.GetByCode(issued.Code)
	if err != nil {
		t.Fatalf("get referrer coupon: %v", err)
	}
	if got.TotalGenerations != issued.TotalGenerations+maxReferralBonus {
		t.Errorf("total_generations = %d, want capped at %d",
			got.TotalGenerations, issued.TotalGenerations+maxReferralBonus)
	}
}

func TestReferralBonusSkipsExpiredCoupon(t *testing.T) {
	svc, coupons, referrals := setupService(t)

	// The referrer's only coupon is already expired.
	referrerEmail := "referrer@example.com"
	expired, err := coupons.Create("EXPIREDCODE3", model.LevelBasic, 2, referrerEmail, 0, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("create expired coupon: %v", err)
	}
	code, err := referrals.GetOrCreateCode(referrerEmail)
	if err != nil {
		t.Fatalf("get referral code: %v", err)
	}

	// The referee still gets their coupon; the dead coupon stays untouched.
	c, err := svc.Issue(
		model.Signature{Email: "friend@example.com", ReferralCode: code.Code},
		engagement.Details{Level: model.LevelBasic},
	)
	if err != nil {
		t.Fatalf("issue referee coupon: %v", err)
	}
	if c.TotalGenerations != 2 {
		t.Errorf("referee total_generations = %d, want 2", c.TotalGenerations)
	}

	got, err := coupons.GetByCode(expired.Code)
	if err != nil {
		t.Fatalf("get expired coupon: %v", err)
	}
	if got.TotalGenerations != expired.TotalGenerations {
		t.Errorf("expired coupon total = %d, want untouched %d", got.TotalGenerations, expired.TotalGenerations)
	}
}

func TestUnknownReferralCodeDoesNotBlockIssuance(t *testing.T) {
	svc, _, _ := setupService(t)

	c, err := svc.Issue(
		model.Signature{Email: "a@b.fr", ReferralCode: "NOPE-12345"},
		engagement.Details{Level: model.LevelBasic},
	)
	if err != nil {
		t.Fatalf("issue with bogus referral: %v", err)
	}
	if c == nil || c.TotalGenerations != 2 {
		t.Errorf("coupon = %+v, want plain basic coupon", c)
	}
}

func TestRefundBoundedByTotal(t *testing.T) {
	svc, coupons, _ := setupService(t)

	c, err := svc.Issue(model.Signature{Email: "a@b.fr"}, engagement.Details{Level: model.LevelBasic})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Refund with a full balance must not exceed total_generations.
	if err := svc.Refund(c.Code); err != nil {
		t.Fatalf("refund: %v", err)
	}
	got, err := coupons.GetByCode(c.Code)
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if got.GenerationsLeft != got.TotalGenerations {
		t.Errorf("generations_left = %d, want %d", got.GenerationsLeft, got.TotalGenerations)
	}

	// Spend one, refund one, balance restored.
	if _, err := svc.UseGeneration(c.Code); err != nil {
		t.Fatalf("use generation: %v", err)
	}
	if err := svc.Refund(c.Code); err != nil {
		t.Fatalf("refund after use: %v", err)
	}
	got, _ = coupons.GetByCode(c.Code)
	if got.GenerationsLeft != got.TotalGenerations {
		t.Errorf("generations_left = %d, want %d after refund", got.GenerationsLeft, got.TotalGenerations)
	}
}
