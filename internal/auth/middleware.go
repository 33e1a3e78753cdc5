package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which RequireUser stores the authenticated identity.
const (
	ctxUserID    = "interview.user_id"
	ctxAuthToken = "interview.auth_token"
)

// RequireUser authenticates every request on the per-user interview routes.
// Credentials come from a bearer Authorization header or, for browser
// clients, the auth cookie; the resolved user id lands in the gin context.
func (s *Service) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.requestToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		userID, err := s.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxAuthToken, token)
		c.Next()
	}
}

// RequireCSRF applies double-submit protection to mutating requests that
// authenticated via cookie. Safe methods pass through, as does explicit
// bearer authorization: a cross-site form post cannot attach that header.
func (s *Service) RequireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if _, ok := bearerToken(c.GetHeader(s.headerName)); ok {
			c.Next()
			return
		}
		sent := c.GetHeader(s.csrfHeaderName)
		baseline, err := c.Cookie(s.csrfCookieName)
		if err != nil || sent == "" || sent != baseline {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
			return
		}
		c.Next()
	}
}

// UserIDFromContext returns the user id RequireUser resolved for the request.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	val, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	userID, ok := val.(int64)
	return userID, ok
}

// AuthTokenFromContext returns the raw token the request authenticated with,
// so logout can revoke exactly that token.
func AuthTokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(ctxAuthToken)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

func (s *Service) requestToken(c *gin.Context) string {
	if token, ok := bearerToken(c.GetHeader(s.headerName)); ok {
		return token
	}
	if token, err := c.Cookie(s.cookieName); err == nil {
		return token
	}
	return ""
}

// bearerToken parses an Authorization header, case-insensitive on the scheme.
func bearerToken(header string) (string, bool) {
	const scheme = "bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(scheme):])
	return token, token != ""
}
