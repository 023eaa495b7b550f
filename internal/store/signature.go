package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chapelleverte/petitiond/internal/model"
)

type SignatureStore struct {
	db *sql.DB
}

func NewSignatureStore(db *sql.DB) *SignatureStore {
	return &SignatureStore{db: db}
}

func scanSignature(scanner interface{ Scan(...any) error }) (*model.Signature, error) {
	var sig model.Signature
	var newsletter int
	var shares string

	err := scanner.Scan(
		&sig.ID, &sig.PublicID, &sig.FirstName, &sig.LastName, &sig.Email,
		&sig.City, &sig.Comment, &newsletter, &shares, &sig.ReferralCode,
		&sig.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sig.Newsletter = newsletter != 0
	if shares != "" {
		sig.Shares = strings.Split(shares, ",")
	}
	return &sig, nil
}

const signatureCols = `id, public_id, first_name, last_name, email, city, comment, newsletter, shares, referral_code, created_at`

func (s *SignatureStore) Create(sig model.Signature) (*model.Signature, error) {
	var newsletter int
	if sig.Newsletter {
		newsletter = 1
	}

	publicID := uuid.NewString()
	result, err := s.db.Exec(
		`INSERT INTO signatures (public_id, first_name, last_name, email, city, comment, newsletter, shares, referral_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		publicID, sig.FirstName, sig.LastName, normalizeEmail(sig.Email), sig.City,
		sig.Comment, newsletter, strings.Join(sig.Shares, ","), sig.ReferralCode,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert signature: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+signatureCols+` FROM signatures WHERE id = ?`, id)
	return scanSignature(row)
}

// GetByPublicID returns a signature by its public UUID, or nil.
func (s *SignatureStore) GetByPublicID(publicID string) (*model.Signature, error) {
	row := s.db.QueryRow(`SELECT `+signatureCols+` FROM signatures WHERE public_id = ?`, publicID)
	sig, err := scanSignature(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signature: %w", err)
	}
	return sig, nil
}

func (s *SignatureStore) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM signatures`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return count, nil
}

func (s *SignatureStore) NewsletterCount() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM signatures WHERE newsletter = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count newsletter opt-ins: %w", err)
	}
	return count, nil
}

// EmailHasSigned reports whether the email already appears on the petition.
func (s *SignatureStore) EmailHasSigned(email string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM signatures WHERE email = ?`,
		normalizeEmail(email),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check email signed: %w", err)
	}
	return count > 0, nil
}
