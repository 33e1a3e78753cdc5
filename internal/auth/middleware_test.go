package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"interviewgo/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

func newMiddlewareFixture(t *testing.T) (*gin.Engine, *Service, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO users (username, password_hash, email, created_at) VALUES (?, ?, ?, ?)`,
		"tester", "hash", "", time.Now().UTC(),
	); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	svc := NewService(db, nil, time.Hour)
	token, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	router := gin.New()
	router.Use(svc.RequireUser(), svc.RequireCSRF())
	router.GET("/protected", func(c *gin.Context) {
		userID, _ := UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	router.POST("/protected", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, svc, token
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireUser(t *testing.T) {
	router, svc, token := newMiddlewareFixture(t)

	// No credentials at all.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if rec := serve(router, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer deadbeef")
	if rec := serve(router, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown token, got %d", rec.Code)
	}

	// Valid bearer token, scheme case-insensitive.
	for _, scheme := range []string{"Bearer ", "bearer "} {
		req = httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", scheme+token)
		rec := serve(router, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for %q scheme, got %d: %s", scheme, rec.Code, rec.Body.String())
		}
	}

	// Valid cookie token.
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: svc.AuthCookieName(), Value: token})
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for cookie auth, got %d", rec.Code)
	}
}

func TestRequireCSRF(t *testing.T) {
	router, svc, token := newMiddlewareFixture(t)

	authCookie := &http.Cookie{Name: svc.AuthCookieName(), Value: token}
	csrf := "csrf-value"

	// Cookie-authenticated mutation without the CSRF pair is rejected.
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.AddCookie(authCookie)
	if rec := serve(router, req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without csrf pair, got %d", rec.Code)
	}

	// Header without the matching cookie is rejected.
	req = httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.AddCookie(authCookie)
	req.Header.Set(svc.CSRFHeaderName(), csrf)
	if rec := serve(router, req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 with header only, got %d", rec.Code)
	}

	// Mismatched pair is rejected.
	req = httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.AddCookie(authCookie)
	req.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: csrf})
	req.Header.Set(svc.CSRFHeaderName(), "something-else")
	if rec := serve(router, req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for mismatched pair, got %d", rec.Code)
	}

	// Matching pair passes.
	req = httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.AddCookie(authCookie)
	req.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: csrf})
	req.Header.Set(svc.CSRFHeaderName(), csrf)
	if rec := serve(router, req); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for matching pair, got %d", rec.Code)
	}

	// Bearer authorization is exempt from the double-submit check.
	req = httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := serve(router, req); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for bearer mutation, got %d", rec.Code)
	}

	// Safe methods skip the check even with cookie auth.
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(authCookie)
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for cookie GET, got %d", rec.Code)
	}
}
