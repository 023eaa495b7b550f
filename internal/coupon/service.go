package coupon

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chapelleverte/petitiond/internal/engagement"
	"github.com/chapelleverte/petitiond/internal/metrics"
	"github.com/chapelleverte/petitiond/internal/model"
	"github.com/chapelleverte/petitiond/internal/store"
)

const (
	// Validity window for a freshly minted coupon.
	validityPeriod = 30 * 24 * time.Hour

	// Extra generations granted per successful referral, and the cap on
	// the total referral bonus.
	generationsPerReferral = 1
	maxReferralBonus       = 10

	// Collision retries when minting a code.
	maxCodeAttempts = 5
)

// Service issues, validates and consumes coupons.
type Service struct {
	coupons   *store.CouponStore
	referrals *store.ReferralStore
	logger    *slog.Logger
}

func NewService(coupons *store.CouponStore, referrals *store.ReferralStore, logger *slog.Logger) *Service {
	return &Service{coupons: coupons, referrals: referrals, logger: logger}
}

// Issue mints a coupon for a scored signature with the level's base
// allotment. If the signer used someone else's referral code, that
// referral is recorded, its bonus awarded exactly once, and the bonus
// generation credited straight onto the referrer's live coupon; referral
// problems are logged and never block issuance.
func (s *Service) Issue(sig model.Signature, details engagement.Details) (*model.Coupon, error) {
	start := time.Now()
	status := "failure"
	defer func() {
		metrics.RecordIssueCouponDuration(status, time.Since(start).Seconds())
	}()

	total := engagement.GenerationsForLevel(details.Level)

	coupon, err := s.createWithFreshCode(details, total, sig.Email)
	if err != nil {
		return nil, err
	}

	if sig.ReferralCode != "" {
		s.creditReferrer(sig)
	}

	status = "success"
	return coupon, nil
}

func (s *Service) createWithFreshCode(details engagement.Details, total int, email string) (*model.Coupon, error) {
	expiresAt := time.Now().UTC().Add(validityPeriod)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}

		coupon, err := s.coupons.Create(code, details.Level, total, email, details.Score, expiresAt)
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create coupon: %w", err)
		}
		return coupon, nil
	}

	return nil, fmt.Errorf("create coupon: exhausted %d code attempts", maxCodeAttempts)
}

// creditReferrer records the referral, flips the referrer's bonus flag,
// and adds the bonus generation to the referrer's current coupon. One
// email can only ever hold one coupon, so the credit must land on the
// live row rather than wait for a reissue that will never come.
func (s *Service) creditReferrer(sig model.Signature) {
	referral, err := s.referrals.RecordReferral(sig.ReferralCode, sig.Email)
	if err != nil {
		if errors.Is(err, store.ErrUnknownReferralCode) || errors.Is(err, store.ErrSelfReferral) {
			s.logger.Warn("referral rejected", "code", sig.ReferralCode, "error", err)
		} else {
			s.logger.Error("record referral", "code", sig.ReferralCode, "error", err)
		}
		return
	}

	awarded, err := s.referrals.MarkBonusAwarded(referral.ID)
	if err != nil {
		s.logger.Error("award referral bonus", "referral_id", referral.ID, "error", err)
		return
	}
	if !awarded {
		return
	}

	count, err := s.referrals.CountAwardedReferrals(referral.ReferrerEmail)
	if err != nil {
		s.logger.Error("count awarded referrals", "referrer", referral.ReferrerEmail, "error", err)
		return
	}
	if count*generationsPerReferral > maxReferralBonus {
		s.logger.Info("referral bonus cap reached", "referrer", referral.ReferrerEmail)
		return
	}

	granted, err := s.coupons.GrantBonusGeneration(referral.ReferrerEmail, time.Now())
	if err != nil {
		s.logger.Error("credit referral bonus", "referrer", referral.ReferrerEmail, "error", err)
		return
	}
	if !granted {
		s.logger.Warn("referral bonus not credited, no unexpired coupon", "referrer", referral.ReferrerEmail)
		return
	}
	s.logger.Info("referral bonus credited",
		"referrer", referral.ReferrerEmail, "referee", referral.RefereeEmail)
}

// Validate checks a coupon code without consuming anything. Calling it
// repeatedly never changes the coupon. The code is accepted grouped or
// bare.
func (s *Service) Validate(code string) (ValidationResult, error) {
	normalized := NormalizeCode(code)

	var coupon *model.Coupon
	if normalized != "" {
		var err error
		coupon, err = s.coupons.GetByCode(normalized)
		if err != nil {
			return ValidationResult{}, err
		}
	}

	result := Check(normalized, coupon, time.Now())
	metrics.RecordValidation(validationOutcome(result))
	return result, nil
}

// UseGeneration validates, then spends one generation atomically. The
// returned coupon reflects the decremented balance.
func (s *Service) UseGeneration(code string) (ValidationResult, error) {
	result, err := s.Validate(code)
	if err != nil || !result.Valid {
		return result, err
	}

	normalized := NormalizeCode(code)
	decremented, err := s.coupons.DecrementGeneration(normalized)
	if err != nil {
		return ValidationResult{}, err
	}
	if !decremented {
		// Lost a race with a concurrent consumer on the last generation.
		return invalid(FailureDepleted, "no generations left on this coupon"), nil
	}

	coupon, err := s.coupons.GetByCode(normalized)
	if err != nil {
		return ValidationResult{}, err
	}
	return ValidationResult{Valid: true, Coupon: coupon, Message: "generation consumed"}, nil
}

// Refund returns one generation after a failed downstream call.
func (s *Service) Refund(code string) error {
	refunded, err := s.coupons.RefundGeneration(NormalizeCode(code))
	if err != nil {
		return err
	}
	if !refunded {
		s.logger.Warn("refund skipped, coupon already at full balance", "code", NormalizeCode(code))
	}
	return nil
}

func validationOutcome(result ValidationResult) string {
	if result.Valid {
		return "valid"
	}
	return string(result.Error)
}
