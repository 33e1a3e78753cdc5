package account

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"interviewgo/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	t.Setenv(providerKeyEnv, base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "secret", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID <= 0 || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash == "secret" {
		t.Fatalf("password stored in plaintext")
	}

	if _, err := svc.Register(ctx, "alice", "other", ""); err == nil {
		t.Errorf("expected duplicate username to fail")
	}
	if _, err := svc.Register(ctx, "", "pw", ""); err == nil {
		t.Errorf("expected empty username to fail")
	}

	got, err := svc.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("login returned wrong user: %d vs %d", got.ID, user.ID)
	}
	if _, err := svc.Login(ctx, "alice", "wrong"); err == nil {
		t.Errorf("expected bad password to fail")
	}
	if _, err := svc.Login(ctx, "nobody", "secret"); err == nil {
		t.Errorf("expected unknown user to fail")
	}
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "bob", "pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, user.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows on second delete, got %v", err)
	}
	if _, err := svc.Login(ctx, "bob", "pw"); err == nil {
		t.Errorf("expected login to fail after delete")
	}
}

func TestProviderKeyEncryptedAtRest(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "carol", "pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	const apiKey = "sk-test-abcdef"
	if err := svc.SetProviderKey(ctx, user.ID, "openai", apiKey); err != nil {
		t.Fatalf("set key: %v", err)
	}

	var stored string
	if err := db.QueryRow(
		`SELECT api_key FROM provider_keys WHERE user_id = ? AND provider = ?`,
		user.ID, "openai",
	).Scan(&stored); err != nil {
		t.Fatalf("read stored key: %v", err)
	}
	if stored == apiKey || strings.Contains(stored, apiKey) {
		t.Fatalf("key stored in plaintext: %q", stored)
	}

	plain, err := svc.ProviderKey(ctx, user.ID, "openai")
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if plain != apiKey {
		t.Errorf("round trip mismatch: %q", plain)
	}

	// Overwriting replaces the stored key.
	if err := svc.SetProviderKey(ctx, user.ID, "openai", "sk-new"); err != nil {
		t.Fatalf("overwrite key: %v", err)
	}
	plain, err = svc.ProviderKey(ctx, user.ID, "openai")
	if err != nil {
		t.Fatalf("get key after overwrite: %v", err)
	}
	if plain != "sk-new" {
		t.Errorf("expected overwritten key, got %q", plain)
	}
}

func TestProviderKeyLegacyPlaintext(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "dave", "pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	// A row written before encryption was enabled.
	if _, err := db.Exec(
		`INSERT INTO provider_keys (user_id, provider, api_key, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, "gemini", "legacy-plain-key", time.Now().UTC(),
	); err != nil {
		t.Fatalf("seed legacy key: %v", err)
	}

	plain, err := svc.ProviderKey(ctx, user.ID, "gemini")
	if err != nil {
		t.Fatalf("get legacy key: %v", err)
	}
	if plain != "legacy-plain-key" {
		t.Errorf("expected plaintext passthrough, got %q", plain)
	}
}

func TestProviderKeyMissing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "erin", "pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	plain, err := svc.ProviderKey(ctx, user.ID, "openai")
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if plain != "" {
		t.Errorf("expected empty key, got %q", plain)
	}
}

func TestListAndDeleteProviderKeys(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "frank", "pw", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, provider := range []string{"openai", "gemini"} {
		if err := svc.SetProviderKey(ctx, user.ID, provider, "sk-"+provider); err != nil {
			t.Fatalf("set %s key: %v", provider, err)
		}
	}

	keys, err := svc.ListProviderKeys(ctx, user.ID)
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	// Ordered by provider name; list exposes no key material.
	if keys[0].Provider != "gemini" || keys[1].Provider != "openai" {
		t.Errorf("unexpected order: %+v", keys)
	}

	if err := svc.DeleteProviderKey(ctx, user.ID, "openai"); err != nil {
		t.Fatalf("delete key: %v", err)
	}
	if err := svc.DeleteProviderKey(ctx, user.ID, "openai"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows on second delete, got %v", err)
	}
	keys, err = svc.ListProviderKeys(ctx, user.ID)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(keys) != 1 || keys[0].Provider != "gemini" {
		t.Errorf("unexpected keys after delete: %+v", keys)
	}
}
