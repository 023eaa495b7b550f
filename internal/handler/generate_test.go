package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chapelleverte/petitiond/internal/coupon"
)

func TestGenerateConsumesGeneration(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"image_url": "https://cdn.example.com/img/1.png"})
	}))
	defer imageSrv.Close()

	mux := newTestMux(t, imageSrv.URL)
	signed := signPetition(t, mux, "marie@example.com", nil)
	before := signed.Coupon.GenerationsLeft

	rec := postJSON(t, mux, "/api/generations", map[string]any{
		"code":   signed.Coupon.Code,
		"prompt": "la chapelle en médiathèque",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Image == nil || resp.Image.ImageURL == "" {
		t.Fatal("expected an image URL")
	}
	if resp.Coupon.Coupon.GenerationsLeft != before-1 {
		t.Errorf("generations left = %d, want %d", resp.Coupon.Coupon.GenerationsLeft, before-1)
	}
}

func TestGenerateRefundsOnAPIFailure(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer imageSrv.Close()

	mux := newTestMux(t, imageSrv.URL)
	signed := signPetition(t, mux, "marie@example.com", nil)
	before := signed.Coupon.GenerationsLeft

	rec := postJSON(t, mux, "/api/generations", map[string]any{
		"code":   signed.Coupon.Code,
		"prompt": "la chapelle en médiathèque",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}

	// The failed generation must not have been spent.
	var result coupon.ValidationResult
	getJSON(t, mux, "/api/coupons/"+signed.Coupon.Code, &result)
	if result.Coupon.GenerationsLeft != before {
		t.Errorf("generations left = %d, want %d after refund", result.Coupon.GenerationsLeft, before)
	}
}

func TestGenerateDepletedCoupon(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"image_url": "https://cdn.example.com/img/1.png"})
	}))
	defer imageSrv.Close()

	mux := newTestMux(t, imageSrv.URL)
	signed := signPetition(t, mux, "marie@example.com", nil)

	body := map[string]any{"code": signed.Coupon.Code, "prompt": "vitraux restaurés"}
	for i := 0; i < signed.Coupon.GenerationsLeft; i++ {
		rec := postJSON(t, mux, "/api/generations", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("generation %d: status = %d", i+1, rec.Code)
		}
	}

	rec := postJSON(t, mux, "/api/generations", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("depleted: status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Coupon.Error != coupon.FailureDepleted {
		t.Errorf("error = %q, want %q", resp.Coupon.Error, coupon.FailureDepleted)
	}
}

func TestGenerateRejectsMissingPromptAndCode(t *testing.T) {
	mux := newTestMux(t, "")

	rec := postJSON(t, mux, "/api/generations", map[string]any{"code": "A2C4-E6G8-J2K4"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing prompt: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = postJSON(t, mux, "/api/generations", map[string]any{"prompt": "une fresque"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing code: status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Coupon.Error != coupon.FailureNoCode {
		t.Errorf("error = %q, want %q", resp.Coupon.Error, coupon.FailureNoCode)
	}
}
