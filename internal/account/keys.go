package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"interviewgo/internal/models"
)

// SetProviderKey persists or updates the API key for a user/provider pair,
// encrypting it at rest.
func (s *Service) SetProviderKey(ctx context.Context, userID int64, provider, key string) error {
	if userID <= 0 {
		return errors.New("invalid user id")
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key is required")
	}
	if s.cipher == nil {
		return errors.New("provider key encryption not configured")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("verify user: %w", err)
	}
	if !exists {
		return errors.New("user not found")
	}

	encrypted, err := s.cipher.Encrypt(key)
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO provider_keys (user_id, provider, api_key, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, provider) DO UPDATE SET api_key = excluded.api_key, created_at = excluded.created_at`,
		userID, provider, encrypted, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store key: %w", err)
	}
	return nil
}

// ProviderKey returns the decrypted API key stored for the user/provider
// pair, or empty when none is stored.
func (s *Service) ProviderKey(ctx context.Context, userID int64, provider string) (string, error) {
	if userID <= 0 {
		return "", errors.New("invalid user id")
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", errors.New("provider is required")
	}
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT api_key FROM provider_keys WHERE user_id = ? AND provider = ? LIMIT 1`,
		userID, provider,
	).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup provider key: %w", err)
	}
	if s.cipher == nil {
		return stored, nil
	}
	plain, err := s.cipher.Decrypt(stored)
	if err != nil {
		if errors.Is(err, errInvalidCiphertext) {
			// Rows written before encryption was enabled are plaintext.
			return stored, nil
		}
		return "", fmt.Errorf("decrypt provider key: %w", err)
	}
	return plain, nil
}

// ListProviderKeys returns the providers the user has keys for, without the
// key material.
func (s *Service) ListProviderKeys(ctx context.Context, userID int64) ([]models.ProviderKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, created_at FROM provider_keys WHERE user_id = ? ORDER BY provider`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list provider keys: %w", err)
	}
	defer rows.Close()

	keys := make([]models.ProviderKey, 0)
	for rows.Next() {
		var k models.ProviderKey
		if err := rows.Scan(&k.Provider, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DeleteProviderKey removes the stored key for a user/provider pair.
func (s *Service) DeleteProviderKey(ctx context.Context, userID int64, provider string) error {
	if userID <= 0 {
		return errors.New("invalid user id")
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM provider_keys WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return fmt.Errorf("delete provider key: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
