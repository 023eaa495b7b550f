package model

import "time"

type Signature struct {
	ID           int64     `json:"id"`
	PublicID     string    `json:"public_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	City         string    `json:"city"`
	Comment      string    `json:"comment"`
	Newsletter   bool      `json:"newsletter"`
	Shares       []string  `json:"shares"`
	ReferralCode string    `json:"referral_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PetitionStats are the aggregate numbers shown on the petition page.
type PetitionStats struct {
	SignatureCount  int64            `json:"signature_count"`
	Goal            int64            `json:"goal"`
	NewsletterCount int64            `json:"newsletter_count"`
	CouponsByLevel  map[string]int64 `json:"coupons_by_level"`
}
