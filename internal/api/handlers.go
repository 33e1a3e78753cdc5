package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"interviewgo/internal/account"
	"interviewgo/internal/auth"
	"interviewgo/internal/mail"
	"interviewgo/internal/models"
	"interviewgo/internal/session"
	"interviewgo/internal/tts"
)

// Handler wires HTTP routes to the session orchestrator and account services.
type Handler struct {
	accounts *account.Service
	auth     *auth.Service
	sessions *session.Orchestrator
	speech   tts.Renderer
	mailer   mail.Sender
	otpTTL   time.Duration
}

// NewHandler constructs a Handler instance. speech may be nil when no TTS
// backend is configured.
func NewHandler(accounts *account.Service, authService *auth.Service, orchestrator *session.Orchestrator, speech tts.Renderer, mailer mail.Sender, otpTTL time.Duration) *Handler {
	return &Handler{
		accounts: accounts,
		auth:     authService,
		sessions: orchestrator,
		speech:   speech,
		mailer:   mailer,
		otpTTL:   otpTTL,
	}
}

// check token userID matches the path userID
func (h *Handler) requirePathUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.UserIDFromContext(c)
		if !ok || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		paramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || paramID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		if paramID != userID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user mismatch"})
			return
		}
		c.Next()
	}
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)
	api.POST("/users/login/verify-otp", h.verifyOTP)
	api.POST("/users/login/resend-otp", h.resendOTP)
	userRoutes := api.Group("/users/:id")
	userRoutes.Use(h.auth.RequireUser(), h.requirePathUser(), h.auth.RequireCSRF())
	userRoutes.POST("/keys", h.setProviderKey)
	userRoutes.GET("/keys", h.listProviderKeys)
	userRoutes.DELETE("/keys", h.deleteProviderKey)
	userRoutes.POST("/interviews/start", h.startInterview)
	userRoutes.GET("/interviews/history", h.interviewHistory)
	userRoutes.POST("/interviews/tts", h.questionAudio)
	userRoutes.POST("/interviews/:session_id/answer", h.submitAnswer)
	userRoutes.GET("/interviews/:session_id/report", h.interviewReport)
	userRoutes.DELETE("/interviews/:session_id", h.deleteInterview)
	userRoutes.POST("/logout", h.logoutUser)
	userRoutes.DELETE("", h.deleteUser)
}

// User create&login interface
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Accounts with an email on file finish login with a one-time code.
	if user.Email != "" {
		h.beginOTPChallenge(c, user)
		return
	}
	h.completeLogin(c, user)
}

// completeLogin issues session tokens for a fully authenticated user.
func (h *Handler) completeLogin(c *gin.Context, user *models.User) {
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.setAuthCookies(c, authToken, csrfToken)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
		"auth_token": authToken,
	})
}

// beginOTPChallenge issues a one-time code, mails it, and hands back a
// temporary token that verify-otp exchanges for session tokens.
func (h *Handler) beginOTPChallenge(c *gin.Context, user *models.User) {
	challenge, err := h.accounts.BeginMFA(c.Request.Context(), user.ID, h.otpTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start verification"})
		return
	}
	if err := h.sendOTPEmail(c, user, challenge); err != nil {
		log.Printf("otp delivery failed for user %d: %v", user.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not deliver verification code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mfa_required": true,
		"temp_token":   challenge.TempToken,
		"message":      "OTP sent to your email.",
	})
}

func (h *Handler) sendOTPEmail(c *gin.Context, user *models.User, challenge *account.MFAChallenge) error {
	if h.mailer == nil {
		return errors.New("no mail sender configured")
	}
	ttl := h.otpTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your login verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
		user.Username, challenge.OTP, int(ttl.Minutes()),
	)
	return h.mailer.Send(c.Request.Context(), user.Email, "Your login verification code", body)
}

type verifyOTPRequest struct {
	TempToken string `json:"temp_token"`
	OTP       string `json:"otp"`
}

func (h *Handler) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.VerifyMFA(c.Request.Context(), req.TempToken, req.OTP)
	if err != nil {
		if errors.Is(err, account.ErrMFAInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	h.completeLogin(c, user)
}

type resendOTPRequest struct {
	Username string `json:"username"`
}

func (h *Handler) resendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.UserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if user.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account has no email on file"})
		return
	}
	h.beginOTPChallenge(c, user)
}

// Interview session interface
type startInterviewRequest struct {
	TargetRole      string   `json:"target_role"`
	Difficulty      string   `json:"difficulty"`
	NumInterviewers int      `json:"num_interviewers"`
	DurationMinutes int      `json:"duration_minutes"`
	CareerLevel     string   `json:"career_level"`
	PresentSkills   []string `json:"present_skills"`
	MissingSkills   []string `json:"missing_skills"`
}

func (h *Handler) startInterview(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req startInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = string(models.DifficultyMedium)
	}
	if req.NumInterviewers == 0 {
		req.NumInterviewers = 1
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = 20
	}
	if req.CareerLevel == "" {
		req.CareerLevel = "Entry-level"
	}

	s, err := h.sessions.Start(c.Request.Context(), userID, models.SessionConfig{
		TargetRole:      strings.TrimSpace(req.TargetRole),
		Difficulty:      models.Difficulty(req.Difficulty),
		NumInterviewers: req.NumInterviewers,
		DurationMinutes: req.DurationMinutes,
		CareerLevel:     req.CareerLevel,
		PresentSkills:   req.PresentSkills,
		MissingSkills:   req.MissingSkills,
	})
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id":        s.ID,
		"session_brief":     s.Brief,
		"interviewers":      s.Interviewers,
		"first_question":    s.Rounds[0].Question,
		"duration_minutes":  s.Config.DurationMinutes,
		"remaining_seconds": s.RemainingSeconds,
	})
}

type answerRequest struct {
	Answer          string `json:"answer"`
	InterviewerName string `json:"interviewer_name"`
	ElapsedSeconds  int    `json:"elapsed_seconds"`
	Skipped         bool   `json:"skipped"`
}

func (h *Handler) submitAnswer(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessionID, ok := h.pathSessionID(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := h.sessions.SubmitAnswer(c.Request.Context(), userID, sessionID, session.AnswerSubmission{
		Answer:          req.Answer,
		InterviewerName: req.InterviewerName,
		ElapsedSeconds:  req.ElapsedSeconds,
		Skipped:         req.Skipped,
	})
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) interviewReport(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessionID, ok := h.pathSessionID(c)
	if !ok {
		return
	}
	report, err := h.sessions.Report(c.Request.Context(), userID, sessionID)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *Handler) interviewHistory(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	summaries, err := h.sessions.History(c.Request.Context(), userID)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

func (h *Handler) deleteInterview(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessionID, ok := h.pathSessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), userID, sessionID); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (h *Handler) questionAudio(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.Data(http.StatusOK, "audio/mpeg", []byte{})
		return
	}
	if h.speech == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "speech synthesis not configured"})
		return
	}
	audio, err := h.speech.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		log.Printf("tts synthesis failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "speech synthesis failed"})
		return
	}
	if len(audio) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func (h *Handler) logoutUser(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	if err := h.auth.RevokeUserTokens(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

// Provider key interface
func (h *Handler) setProviderKey(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req struct {
		Provider string `json:"provider"`
		Key      string `json:"key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.accounts.SetProviderKey(c.Request.Context(), userID, req.Provider, req.Key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listProviderKeys(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	keys, err := h.accounts.ListProviderKeys(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (h *Handler) deleteProviderKey(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req struct {
		Provider string `json:"provider"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.accounts.DeleteProviderKey(c.Request.Context(), userID, req.Provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) pathSessionID(c *gin.Context) (int64, bool) {
	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil || sessionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, false
	}
	return sessionID, true
}

// sessionError maps orchestrator errors onto HTTP statuses. Store failures
// stay 500s and are logged, never swallowed.
func (h *Handler) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrGenerationTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "AI service timed out, please retry"})
	case errors.Is(err, session.ErrGeneration):
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI service unavailable, please retry"})
	case errors.Is(err, session.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "session was updated concurrently, please retry"})
	default:
		log.Printf("session operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := gin.Mode() == gin.ReleaseMode
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
