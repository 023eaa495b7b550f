package model

import "time"

// ReferralCode is the stable shareable code owned by one signer.
// One row per email; the code never changes once minted.
type ReferralCode struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Referral records one referee signing with a referrer's code.
type Referral struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	RefereeEmail  string     `json:"referee_email"`
	ReferrerEmail string     `json:"referrer_email"`
	Used          bool       `json:"used"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	BonusAwarded  bool       `json:"bonus_awarded"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReferralStats summarizes a referrer's activity for the share flow.
type ReferralStats struct {
	Email            string `json:"email"`
	Code             string `json:"code"`
	TotalReferred    int    `json:"total_referred"`
	BonusGenerations int    `json:"bonus_generations"`
}
