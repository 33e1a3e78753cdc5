package account

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"interviewgo/internal/models"
)

// ErrMFAInvalid covers every way an OTP verification can fail: unknown
// challenge, expired code, or wrong code. Callers get no finer detail.
var ErrMFAInvalid = errors.New("invalid or expired verification code")

const defaultOTPTTL = 5 * time.Minute

// MFAChallenge is a pending one-time-code login challenge. The OTP itself is
// only ever returned here for delivery; the database keeps a hash.
type MFAChallenge struct {
	TempToken string
	OTP       string
	ExpiresAt time.Time
}

// BeginMFA issues a fresh OTP challenge for the user, replacing any earlier
// one. The returned code must be delivered out of band.
func (s *Service) BeginMFA(ctx context.Context, userID int64, ttl time.Duration) (*MFAChallenge, error) {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	otp, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate mfa token: %w", err)
	}
	tempToken := hex.EncodeToString(tokenBytes)
	expires := time.Now().UTC().Add(ttl)

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET mfa_temp_token = ?, mfa_otp_hash = ?, mfa_otp_expires = ? WHERE id = ?`,
		tempToken, hashPassword(otp), expires, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("store mfa challenge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, errors.New("user not found")
	}
	return &MFAChallenge{TempToken: tempToken, OTP: otp, ExpiresAt: expires}, nil
}

// VerifyMFA redeems an OTP challenge. The challenge is single-use: a
// successful verification clears it before the user is returned.
func (s *Service) VerifyMFA(ctx context.Context, tempToken, otp string) (*models.User, error) {
	if tempToken == "" || otp == "" {
		return nil, ErrMFAInvalid
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, created_at, mfa_otp_hash, mfa_otp_expires
		 FROM users WHERE mfa_temp_token = ?`, tempToken,
	)
	var (
		user    models.User
		otpHash string
		expires time.Time
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.CreatedAt, &otpHash, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMFAInvalid
		}
		return nil, fmt.Errorf("query mfa challenge: %w", err)
	}
	if time.Now().UTC().After(expires) {
		return nil, ErrMFAInvalid
	}
	if otpHash != hashPassword(otp) {
		return nil, ErrMFAInvalid
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET mfa_temp_token = NULL, mfa_otp_hash = NULL, mfa_otp_expires = NULL WHERE id = ?`,
		user.ID,
	); err != nil {
		return nil, fmt.Errorf("clear mfa challenge: %w", err)
	}
	return &user, nil
}

// UserByUsername looks up a user profile; used to reissue OTP challenges.
func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, created_at FROM users WHERE username = ?`, username,
	)
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
