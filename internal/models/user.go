package models

import "time"

// User is an account able to own interview sessions. An account with an
// email address on file logs in through an OTP second factor.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProviderKey is a stored API credential for an AI provider, encrypted at rest.
type ProviderKey struct {
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}
