package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chapelleverte/petitiond/internal/coupon"
	"github.com/chapelleverte/petitiond/internal/imagegen"
	"github.com/chapelleverte/petitiond/internal/metrics"
	"github.com/chapelleverte/petitiond/internal/websocket"
)

type GenerateHandler struct {
	coupons *coupon.Service
	images  *imagegen.Client
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewGenerateHandler(coupons *coupon.Service, images *imagegen.Client, hub *websocket.Hub, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{coupons: coupons, images: images, hub: hub, logger: logger}
}

type generateRequest struct {
	Code   string `json:"code"`
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

type generateResponse struct {
	Image  *imagegen.Result        `json:"image"`
	Coupon coupon.ValidationResult `json:"coupon"`
}

// Create handles POST /api/generations: one generation is spent from the
// coupon, the image is rendered, and the generation is refunded if the
// rendering API fails.
func (h *GenerateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	result, err := h.coupons.UseGeneration(req.Code)
	if err != nil {
		h.logger.Error("consume generation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to consume generation"})
		return
	}
	if !result.Valid {
		metrics.RecordGeneration("coupon_rejected")
		writeJSON(w, http.StatusUnprocessableEntity, generateResponse{Coupon: result})
		return
	}

	image, err := h.images.Generate(r.Context(), req.Prompt, req.Style)
	if err != nil {
		metrics.RecordGeneration("api_error")
		h.logger.Error("generate image", "error", err)
		if refundErr := h.coupons.Refund(req.Code); refundErr != nil {
			h.logger.Error("refund generation", "error", refundErr)
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "image generation failed, your generation was not spent"})
		return
	}
	metrics.RecordGeneration("success")

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(websocket.TypeImageGenerated, map[string]any{
			"image_url": image.ImageURL,
		}))
	}

	writeJSON(w, http.StatusOK, generateResponse{Image: image, Coupon: result})
}
