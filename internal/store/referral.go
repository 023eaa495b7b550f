package store

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/chapelleverte/petitiond/internal/model"
)

var (
	// ErrUnknownReferralCode is returned when a referral code resolves to
	// no owner.
	ErrUnknownReferralCode = errors.New("unknown referral code")
	// ErrSelfReferral is returned when a signer uses their own code.
	ErrSelfReferral = errors.New("cannot refer yourself")
)

const referralSuffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type ReferralStore struct {
	db *sql.DB
}

func NewReferralStore(db *sql.DB) *ReferralStore {
	return &ReferralStore{db: db}
}

func scanReferralCode(scanner interface{ Scan(...any) error }) (*model.ReferralCode, error) {
	var rc model.ReferralCode
	err := scanner.Scan(&rc.ID, &rc.Email, &rc.Code, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func scanReferral(scanner interface{ Scan(...any) error }) (*model.Referral, error) {
	var r model.Referral
	var used, bonusAwarded int
	var usedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.Code, &r.RefereeEmail, &r.ReferrerEmail,
		&used, &usedAt, &bonusAwarded, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Used = used != 0
	r.BonusAwarded = bonusAwarded != 0
	if usedAt.Valid {
		r.UsedAt = &usedAt.Time
	}
	return &r, nil
}

const referralCodeCols = `id, email, code, created_at`
const referralCols = `id, code, referee_email, referrer_email, used, used_at, bonus_awarded, created_at`

// GetOrCreateCode returns the stable referral code for an email, minting
// and persisting one on first use. Re-invocation always returns the same
// code.
func (s *ReferralStore) GetOrCreateCode(email string) (*model.ReferralCode, error) {
	email = normalizeEmail(email)

	existing, err := s.GetCodeByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// Retry on the unlikely suffix collision.
	for attempt := 0; attempt < 5; attempt++ {
		code, err := mintReferralCode(email)
		if err != nil {
			return nil, err
		}

		result, err := s.db.Exec(
			`INSERT INTO referral_codes (email, code, created_at) VALUES (?, ?, ?)`,
			email, code, time.Now().UTC(),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: referral_codes.code") {
				continue
			}
			if strings.Contains(err.Error(), "UNIQUE constraint failed: referral_codes.email") {
				// Lost a race with a concurrent mint for the same email.
				return s.GetCodeByEmail(email)
			}
			return nil, fmt.Errorf("insert referral code: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		row := s.db.QueryRow(`SELECT `+referralCodeCols+` FROM referral_codes WHERE id = ?`, id)
		return scanReferralCode(row)
	}

	return nil, fmt.Errorf("mint referral code: exhausted retries")
}

// GetCodeByEmail returns the stored referral code for an email, or nil.
func (s *ReferralStore) GetCodeByEmail(email string) (*model.ReferralCode, error) {
	row := s.db.QueryRow(
		`SELECT `+referralCodeCols+` FROM referral_codes WHERE email = ?`,
		normalizeEmail(email),
	)
	rc, err := scanReferralCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get referral code by email: %w", err)
	}
	return rc, nil
}

// ResolveCode returns the owner of a referral code by exact match, or nil.
func (s *ReferralStore) ResolveCode(code string) (*model.ReferralCode, error) {
	row := s.db.QueryRow(
		`SELECT `+referralCodeCols+` FROM referral_codes WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code)),
	)
	rc, err := scanReferralCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve referral code: %w", err)
	}
	return rc, nil
}

// RecordReferral registers that refereeEmail signed using the given code.
// The record is marked used immediately; the bonus flag is set separately.
func (s *ReferralStore) RecordReferral(code, refereeEmail string) (*model.Referral, error) {
	refereeEmail = normalizeEmail(refereeEmail)

	owner, err := s.ResolveCode(code)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrUnknownReferralCode
	}
	if owner.Email == refereeEmail {
		return nil, ErrSelfReferral
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO referrals (code, referee_email, referrer_email, used, used_at, bonus_awarded, created_at)
		 VALUES (?, ?, ?, 1, ?, 0, ?)`,
		owner.Code, refereeEmail, owner.Email, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert referral: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+referralCols+` FROM referrals WHERE id = ?`, id)
	return scanReferral(row)
}

// MarkBonusAwarded flips the bonus flag exactly once. It returns false if
// the bonus was already awarded, which guards against double-crediting.
func (s *ReferralStore) MarkBonusAwarded(id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE referrals SET bonus_awarded = 1 WHERE id = ? AND bonus_awarded = 0`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark bonus awarded: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows == 1, nil
}

// CountAwardedReferrals counts referrals that have earned the referrer a
// bonus.
func (s *ReferralStore) CountAwardedReferrals(email string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM referrals WHERE referrer_email = ? AND used = 1 AND bonus_awarded = 1`,
		normalizeEmail(email),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count awarded referrals: %w", err)
	}
	return count, nil
}

// CountReferred counts everyone who signed with this referrer's code.
func (s *ReferralStore) CountReferred(email string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM referrals WHERE referrer_email = ? AND used = 1`,
		normalizeEmail(email),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count referred: %w", err)
	}
	return count, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mintReferralCode builds PREFIX-SUFFIX: the first three letters of the
// email uppercased (padded with X), plus five random characters.
func mintReferralCode(email string) (string, error) {
	var prefix []rune
	for _, r := range strings.ToUpper(email) {
		if r >= 'A' && r <= 'Z' {
			prefix = append(prefix, r)
			if len(prefix) == 3 {
				break
			}
		}
	}
	for len(prefix) < 3 {
		prefix = append(prefix, 'X')
	}

	max := big.NewInt(int64(len(referralSuffixAlphabet)))
	suffix := make([]byte, 5)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate referral suffix: %w", err)
		}
		suffix[i] = referralSuffixAlphabet[n.Int64()]
	}

	return string(prefix) + "-" + string(suffix), nil
}
