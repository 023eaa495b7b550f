package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/chapelleverte/petitiond/internal/model"
	"github.com/chapelleverte/petitiond/internal/store"
)

// Bonus generations granted per awarded referral, and the cap applied at
// issuance time. Kept in sync with the coupon service.
const (
	bonusPerReferral = 1
	bonusCap         = 10
)

type ReferralHandler struct {
	referrals  *store.ReferralStore
	signatures *store.SignatureStore
	logger     *slog.Logger
}

func NewReferralHandler(referrals *store.ReferralStore, signatures *store.SignatureStore, logger *slog.Logger) *ReferralHandler {
	return &ReferralHandler{referrals: referrals, signatures: signatures, logger: logger}
}

// Get handles GET /api/referrals/{email}: it returns the signer's stable
// referral code and referral tally, minting the code on first request.
// Only emails that have signed the petition get a code.
func (h *ReferralHandler) Get(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PathValue("email"))
	if !validEmail(email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	}

	signed, err := h.signatures.EmailHasSigned(email)
	if err != nil {
		h.logger.Error("check signature for referral", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get referral code"})
		return
	}
	if !signed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no signature found for this email"})
		return
	}

	code, err := h.referrals.GetOrCreateCode(email)
	if err != nil {
		h.logger.Error("get referral code", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get referral code"})
		return
	}

	referred, err := h.referrals.CountReferred(email)
	if err != nil {
		h.logger.Error("count referred", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get referral stats"})
		return
	}

	awarded, err := h.referrals.CountAwardedReferrals(email)
	if err != nil {
		h.logger.Error("count awarded referrals", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get referral stats"})
		return
	}
	bonus := awarded * bonusPerReferral
	if bonus > bonusCap {
		bonus = bonusCap
	}

	writeJSON(w, http.StatusOK, model.ReferralStats{
		Email:            code.Email,
		Code:             code.Code,
		TotalReferred:    referred,
		BonusGenerations: bonus,
	})
}
