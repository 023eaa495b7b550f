package handler

import (
	"log/slog"
	"net/http"

	"github.com/chapelleverte/petitiond/internal/coupon"
)

type CouponHandler struct {
	coupons *coupon.Service
	logger  *slog.Logger
}

func NewCouponHandler(coupons *coupon.Service, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

// Validate handles GET /api/coupons/{code}. Rejections are part of the
// response body, not HTTP errors: the page branches on "valid".
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	result, err := h.coupons.Validate(r.PathValue("code"))
	if err != nil {
		h.logger.Error("validate coupon", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to validate coupon"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
