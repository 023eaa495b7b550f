package handler

import (
	"log/slog"
	"net/http"

	"github.com/chapelleverte/petitiond/internal/model"
	"github.com/chapelleverte/petitiond/internal/store"
)

type StatsHandler struct {
	signatures *store.SignatureStore
	coupons    *store.CouponStore
	goal       int64
	logger     *slog.Logger
}

func NewStatsHandler(signatures *store.SignatureStore, coupons *store.CouponStore, goal int64, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{signatures: signatures, coupons: coupons, goal: goal, logger: logger}
}

// current gathers the aggregate numbers best-effort: a failed count is
// logged and reported as zero rather than failing the caller.
func (h *StatsHandler) current() model.PetitionStats {
	stats := model.PetitionStats{Goal: h.goal, CouponsByLevel: map[string]int64{}}

	var err error
	if stats.SignatureCount, err = h.signatures.Count(); err != nil {
		h.logger.Error("count signatures", "error", err)
	}
	if stats.NewsletterCount, err = h.signatures.NewsletterCount(); err != nil {
		h.logger.Error("count newsletter optins", "error", err)
	}
	if counts, err := h.coupons.CountByLevel(); err != nil {
		h.logger.Error("count coupons by level", "error", err)
	} else {
		stats.CouponsByLevel = counts
	}

	return stats
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.current())
}
