package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestMFAChallengeLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "grace", "pw", "grace@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	challenge, err := svc.BeginMFA(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("begin mfa: %v", err)
	}
	if len(challenge.OTP) != 6 {
		t.Fatalf("expected 6-digit code, got %q", challenge.OTP)
	}
	if challenge.TempToken == "" {
		t.Fatalf("expected a temp token")
	}
	if !challenge.ExpiresAt.After(time.Now().UTC()) {
		t.Fatalf("challenge already expired: %v", challenge.ExpiresAt)
	}

	if _, err := svc.VerifyMFA(ctx, challenge.TempToken, "000000"); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected ErrMFAInvalid for wrong code, got %v", err)
	}
	if _, err := svc.VerifyMFA(ctx, "no-such-token", challenge.OTP); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected ErrMFAInvalid for unknown token, got %v", err)
	}

	got, err := svc.VerifyMFA(ctx, challenge.TempToken, challenge.OTP)
	if err != nil {
		t.Fatalf("verify mfa: %v", err)
	}
	if got.ID != user.ID || got.Email != "grace@example.com" {
		t.Fatalf("verify returned wrong user: %+v", got)
	}

	// Challenges are single-use.
	if _, err := svc.VerifyMFA(ctx, challenge.TempToken, challenge.OTP); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected ErrMFAInvalid on replay, got %v", err)
	}
}

func TestMFAExpiredChallenge(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "heidi", "pw", "heidi@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	challenge, err := svc.BeginMFA(ctx, user.ID, time.Minute)
	if err != nil {
		t.Fatalf("begin mfa: %v", err)
	}
	if _, err := db.Exec(
		`UPDATE users SET mfa_otp_expires = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Minute), user.ID,
	); err != nil {
		t.Fatalf("age challenge: %v", err)
	}

	if _, err := svc.VerifyMFA(ctx, challenge.TempToken, challenge.OTP); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected ErrMFAInvalid for expired challenge, got %v", err)
	}
}

func TestMFAReissueReplacesChallenge(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ivan", "pw", "ivan@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	first, err := svc.BeginMFA(ctx, user.ID, time.Minute)
	if err != nil {
		t.Fatalf("begin mfa: %v", err)
	}
	second, err := svc.BeginMFA(ctx, user.ID, time.Minute)
	if err != nil {
		t.Fatalf("reissue mfa: %v", err)
	}
	if first.TempToken == second.TempToken {
		t.Fatalf("expected reissue to rotate the temp token")
	}

	if _, err := svc.VerifyMFA(ctx, first.TempToken, first.OTP); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected superseded challenge to fail, got %v", err)
	}
	if _, err := svc.VerifyMFA(ctx, second.TempToken, second.OTP); err != nil {
		t.Fatalf("verify reissued challenge: %v", err)
	}
}

func TestUserByUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "judy", "pw", "judy@example.com"); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := svc.UserByUsername(ctx, "judy")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user.Email != "judy@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
	if _, err := svc.UserByUsername(ctx, "nobody"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestBeginMFAUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.BeginMFA(context.Background(), 9999, time.Minute); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}
