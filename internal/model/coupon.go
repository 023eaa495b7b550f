package model

import "time"

type CouponLevel string

const (
	LevelBasic      CouponLevel = "basic"
	LevelEngaged    CouponLevel = "engaged"
	LevelPassionate CouponLevel = "passionate"
	LevelChampion   CouponLevel = "champion"
)

// Coupon entitles its holder to a bounded number of image generations.
// Invariant: 0 <= GenerationsLeft <= TotalGenerations. A coupon is never
// deleted; it goes dead once depleted or past ExpiresAt.
type Coupon struct {
	ID               int64       `json:"id"`
	Code             string      `json:"code"`
	Level            CouponLevel `json:"level"`
	GenerationsLeft  int         `json:"generations_left"`
	TotalGenerations int         `json:"total_generations"`
	Email            string      `json:"email"`
	EngagementScore  int         `json:"engagement_score"`
	CreatedAt        time.Time   `json:"created_at"`
	ExpiresAt        time.Time   `json:"expires_at"`
}

// Expired reports whether the coupon is past its expiry at the given time.
func (c *Coupon) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Depleted reports whether no generations remain.
func (c *Coupon) Depleted() bool {
	return c.GenerationsLeft <= 0
}
