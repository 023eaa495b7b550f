package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chapelleverte/petitiond/internal/model"
)

// ErrDuplicateCode is returned when a generated coupon code collides with
// an existing row. Callers retry with a fresh code.
var ErrDuplicateCode = errors.New("coupon code already exists")

type CouponStore struct {
	db *sql.DB
}

func NewCouponStore(db *sql.DB) *CouponStore {
	return &CouponStore{db: db}
}

func scanCoupon(scanner interface{ Scan(...any) error }) (*model.Coupon, error) {
	var c model.Coupon
	var level string

	err := scanner.Scan(
		&c.ID, &c.Code, &level, &c.GenerationsLeft, &c.TotalGenerations,
		&c.Email, &c.EngagementScore, &c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	c.Level = model.CouponLevel(level)
	return &c, nil
}

const couponCols = `id, code, level, generations_left, total_generations, email, engagement_score, created_at, expires_at`

// Create inserts a new coupon with a full generation balance.
func (s *CouponStore) Create(code string, level model.CouponLevel, totalGenerations int, email string, engagementScore int, expiresAt time.Time) (*model.Coupon, error) {
	now := time.Now().UTC()

	result, err := s.db.Exec(
		`INSERT INTO coupons (code, level, generations_left, total_generations, email, engagement_score, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		code, string(level), totalGenerations, totalGenerations, email, engagementScore, now, expiresAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("insert coupon: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+couponCols+` FROM coupons WHERE id = ?`, id)
	return scanCoupon(row)
}

// GetByCode returns the coupon for an ungrouped code, or nil if absent.
func (s *CouponStore) GetByCode(code string) (*model.Coupon, error) {
	row := s.db.QueryRow(`SELECT `+couponCols+` FROM coupons WHERE code = ?`, code)
	c, err := scanCoupon(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

// ListByEmail returns all coupons issued to an email, newest first.
func (s *CouponStore) ListByEmail(email string) ([]model.Coupon, error) {
	rows, err := s.db.Query(
		`SELECT `+couponCols+` FROM coupons WHERE email = ? ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list coupons by email: %w", err)
	}
	defer rows.Close()

	var coupons []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// DecrementGeneration atomically spends one generation. It returns false
// when the coupon does not exist or is already depleted — the conditional
// UPDATE is the only consumption path, so concurrent callers cannot drive
// generations_left below zero.
func (s *CouponStore) DecrementGeneration(code string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE coupons SET generations_left = generations_left - 1 WHERE code = ? AND generations_left > 0`,
		code,
	)
	if err != nil {
		return false, fmt.Errorf("decrement generation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows == 1, nil
}

// RefundGeneration returns one generation after a failed image call. The
// balance never exceeds total_generations.
func (s *CouponStore) RefundGeneration(code string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE coupons SET generations_left = generations_left + 1 WHERE code = ? AND generations_left < total_generations`,
		code,
	)
	if err != nil {
		return false, fmt.Errorf("refund generation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows == 1, nil
}

// GrantBonusGeneration raises both the balance and the allotment of the
// email's newest unexpired coupon by one, in a single UPDATE. It returns
// false when the email holds no unexpired coupon to credit.
func (s *CouponStore) GrantBonusGeneration(email string, now time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE coupons
		 SET generations_left = generations_left + 1,
		     total_generations = total_generations + 1
		 WHERE id = (
			SELECT id FROM coupons
			WHERE email = ? AND expires_at > ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		 )`,
		email, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("grant bonus generation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows == 1, nil
}

// CountByLevel returns how many coupons were issued per level.
func (s *CouponStore) CountByLevel() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT level, COUNT(*) FROM coupons GROUP BY level`)
	if err != nil {
		return nil, fmt.Errorf("count coupons by level: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan level count: %w", err)
		}
		counts[level] = count
	}
	return counts, rows.Err()
}
