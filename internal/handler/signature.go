package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chapelleverte/petitiond/internal/coupon"
	"github.com/chapelleverte/petitiond/internal/email"
	"github.com/chapelleverte/petitiond/internal/engagement"
	"github.com/chapelleverte/petitiond/internal/metrics"
	"github.com/chapelleverte/petitiond/internal/model"
	"github.com/chapelleverte/petitiond/internal/store"
	"github.com/chapelleverte/petitiond/internal/websocket"
)

type SignatureHandler struct {
	signatures *store.SignatureStore
	calculator *engagement.Calculator
	coupons    *coupon.Service
	stats      *StatsHandler
	mailer     *email.Client
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewSignatureHandler(
	signatures *store.SignatureStore,
	calculator *engagement.Calculator,
	coupons *coupon.Service,
	stats *StatsHandler,
	mailer *email.Client,
	hub *websocket.Hub,
	logger *slog.Logger,
) *SignatureHandler {
	return &SignatureHandler{
		signatures: signatures,
		calculator: calculator,
		coupons:    coupons,
		stats:      stats,
		mailer:     mailer,
		hub:        hub,
		logger:     logger,
	}
}

func (h *SignatureHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type signatureRequest struct {
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	City         string   `json:"city"`
	Comment      string   `json:"comment"`
	Newsletter   bool     `json:"newsletter"`
	Shares       []string `json:"shares"`
	ReferralCode string   `json:"referral_code"`
}

type signatureResponse struct {
	Signature  *model.Signature    `json:"signature"`
	Coupon     *couponView         `json:"coupon"`
	Engagement engagement.Details  `json:"engagement"`
	Stats      model.PetitionStats `json:"stats"`
}

// couponView is a Coupon with the code rendered in its grouped display form.
type couponView struct {
	model.Coupon
	Code string `json:"code"`
}

// Create handles POST /api/signatures: it persists the signature, scores
// engagement, issues the matching coupon, emails it, and broadcasts the
// updated petition stats.
func (h *SignatureHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req signatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	if req.FirstName == "" || req.LastName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "first_name and last_name are required"})
		return
	}
	if !validEmail(req.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	}

	signed, err := h.signatures.EmailHasSigned(req.Email)
	if err != nil {
		h.logger.Error("check existing signature", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create signature"})
		return
	}
	if signed {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "this email has already signed the petition"})
		return
	}

	sig, err := h.signatures.Create(model.Signature{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		City:         strings.TrimSpace(req.City),
		Comment:      req.Comment,
		Newsletter:   req.Newsletter,
		Shares:       req.Shares,
		ReferralCode: strings.TrimSpace(req.ReferralCode),
	})
	if err != nil {
		h.logger.Error("create signature", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create signature"})
		return
	}
	metrics.SignaturesTotal.Inc()

	details, err := h.calculator.Calculate(r.Context(), *sig)
	if err != nil {
		h.logger.Error("calculate engagement", "signature", sig.PublicID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to score signature"})
		return
	}

	issued, err := h.coupons.Issue(*sig, details)
	if err != nil {
		h.logger.Error("issue coupon", "signature", sig.PublicID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue coupon"})
		return
	}

	// Email delivery must not hold up the signing flow.
	if h.mailer != nil && h.mailer.Configured() {
		go func(c model.Coupon, to string) {
			err := h.mailer.SendCoupon(to, coupon.FormatCode(c.Code), string(c.Level), c.GenerationsLeft, c.ExpiresAt)
			if err != nil {
				h.logger.Error("send coupon email", "email", to, "error", err)
			}
		}(*issued, sig.Email)
	}

	stats := h.stats.current()
	h.broadcast(websocket.NewMessage(websocket.TypeSignatureCreated, map[string]any{
		"city": sig.City,
	}))
	h.broadcast(websocket.NewMessage(websocket.TypeStatsUpdated, map[string]any{
		"signatures": stats.SignatureCount,
		"goal":       stats.Goal,
	}))

	writeJSON(w, http.StatusCreated, signatureResponse{
		Signature:  sig,
		Coupon:     &couponView{Coupon: *issued, Code: coupon.FormatCode(issued.Code)},
		Engagement: details,
		Stats:      stats,
	})
}

// Get handles GET /api/signatures/{id} where id is the signature's public ID.
func (h *SignatureHandler) Get(w http.ResponseWriter, r *http.Request) {
	sig, err := h.signatures.GetByPublicID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get signature"})
		return
	}
	if sig == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "signature not found"})
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
