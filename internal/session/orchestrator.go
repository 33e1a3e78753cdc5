package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"interviewgo/internal/models"
)

const (
	historyLimit = 20

	// defaultFirstQuestion keeps a session usable when the provider returns
	// a panel but no opening question.
	defaultFirstQuestion = "Tell me about yourself."

	// skippedAnswer marks a round answered with no text. The pending round is
	// the last round with an empty answer, so empty text must never be
	// recorded as an answer.
	skippedAnswer = "[skipped]"

	// DefaultCallTimeout bounds a single content-provider call.
	DefaultCallTimeout = 2 * time.Minute
)

// Orchestrator drives the session state machine. It is stateless between
// calls: every operation loads the session fresh from the store, mutates it
// in memory, and writes it back before responding. State is never persisted
// while a provider call is in flight, so a provider failure or timeout
// leaves the previously stored state intact.
type Orchestrator struct {
	store       Store
	providers   ProviderFactory
	cache       *Cache
	callTimeout time.Duration
}

// NewOrchestrator wires the store, provider factory and optional cache.
func NewOrchestrator(store Store, providers ProviderFactory, cache *Cache, callTimeout time.Duration) *Orchestrator {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Orchestrator{
		store:       store,
		providers:   providers,
		cache:       cache,
		callTimeout: callTimeout,
	}
}

// AnswerSubmission is one submitted answer.
type AnswerSubmission struct {
	Answer          string
	InterviewerName string
	ElapsedSeconds  int
	Skipped         bool
}

// AnswerResult is the outcome of one answer submission.
type AnswerResult struct {
	SessionID        int64           `json:"session_id"`
	Feedback         models.Feedback `json:"feedback"`
	NextQuestion     string          `json:"next_question,omitempty"`
	ShouldContinue   bool            `json:"should_continue"`
	RoundsCompleted  int             `json:"rounds_completed"`
	RemainingSeconds int             `json:"remaining_seconds"`
	PenaltySeconds   int             `json:"penalty_seconds"`
	PenaltyReason    string          `json:"penalty_reason,omitempty"`
}

// Start creates a session: panel and opening question from the provider,
// round 1 pending, full time budget. Nothing is persisted if the provider
// fails.
func (o *Orchestrator) Start(ctx context.Context, userID int64, cfg models.SessionConfig) (*models.InterviewSession, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	provider, err := o.providers.Provider(ctx, userID)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	content, err := provider.Start(callCtx, cfg)
	if err != nil {
		return nil, generationError("start", err)
	}
	question := strings.TrimSpace(content.FirstQuestion)
	if question == "" {
		question = defaultFirstQuestion
	}

	s := &models.InterviewSession{
		UserID:           userID,
		Config:           cfg,
		Brief:            content.Brief,
		Interviewers:     content.Interviewers,
		Round:            1,
		MaxRounds:        MaxRounds(cfg.DurationMinutes),
		RemainingSeconds: InitialBudget(cfg.DurationMinutes),
		Status:           models.StatusActive,
		Rounds: []models.Round{{
			InterviewerName: NextInterviewer(content.Interviewers, 0),
			Question:        question,
		}},
	}
	if err := o.store.Create(ctx, s); err != nil {
		return nil, err
	}
	o.cache.Invalidate(ctx, userID, 0)
	log.Printf("interview session %d started for user %d (%s, %d min)",
		s.ID, userID, cfg.TargetRole, cfg.DurationMinutes)
	return s, nil
}

// SubmitAnswer records the answer on the pending round, updates the time
// budget, asks the provider for feedback and the next question, and either
// advances the session or completes it. Submitting against a completed
// session is an idempotent no-op that echoes the stored state.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, userID, sessionID int64, sub AnswerSubmission) (*AnswerResult, error) {
	s, err := o.store.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status == models.StatusCompleted {
		return &AnswerResult{
			SessionID:        s.ID,
			Feedback:         models.Feedback{Summary: "Interview already completed."},
			ShouldContinue:   false,
			RoundsCompleted:  s.Round,
			RemainingSeconds: s.RemainingSeconds,
		}, nil
	}

	answer := strings.TrimSpace(sub.Answer)
	if answer == "" {
		answer = skippedAnswer
	}
	currentQuestion := ""
	interviewerName := DefaultInterviewerName
	if pending := s.PendingRound(); pending != nil {
		pending.Answer = answer
		currentQuestion = pending.Question
		interviewerName = pending.InterviewerName
	}
	if sub.InterviewerName != "" {
		interviewerName = sub.InterviewerName
	}
	s.RemainingSeconds = DeductElapsed(s.RemainingSeconds, sub.ElapsedSeconds)

	provider, err := o.providers.Provider(ctx, userID)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	verdict, err := provider.Answer(callCtx, AnswerContext{
		Config:           s.Config,
		Interviewers:     s.Interviewers,
		Rounds:           s.Rounds,
		InterviewerName:  interviewerName,
		Question:         currentQuestion,
		Answer:           answer,
		Skipped:          sub.Skipped,
		Round:            s.Round,
		MaxRounds:        s.MaxRounds,
		RemainingSeconds: s.RemainingSeconds,
	})
	if err != nil {
		// The mutated copy is discarded; the stored state is untouched.
		return nil, generationError("answer", err)
	}

	penalty := ClampPenalty(verdict.PenaltySeconds)
	s.RemainingSeconds = DeductPenalty(s.RemainingSeconds, verdict.PenaltySeconds)
	if len(s.Rounds) > 0 {
		s.Rounds[len(s.Rounds)-1].Feedback = verdict.Feedback
	}

	nextQuestion := strings.TrimSpace(verdict.NextQuestion)
	cont := ShouldContinue(verdict.ShouldContinue && nextQuestion != "",
		s.RemainingSeconds, s.Round, s.MaxRounds)
	if cont {
		interviewer := NextInterviewer(s.Interviewers, s.Round)
		s.Round++
		s.Rounds = append(s.Rounds, models.Round{
			InterviewerName: interviewer,
			Question:        nextQuestion,
		})
	} else {
		s.Status = models.StatusCompleted
	}

	if err := o.store.Update(ctx, s); err != nil {
		return nil, err
	}
	o.cache.Invalidate(ctx, userID, s.ID)

	result := &AnswerResult{
		SessionID:        s.ID,
		Feedback:         verdict.Feedback,
		ShouldContinue:   cont,
		RoundsCompleted:  s.Round,
		RemainingSeconds: s.RemainingSeconds,
		PenaltySeconds:   penalty,
		PenaltyReason:    verdict.PenaltyReason,
	}
	if cont {
		result.NextQuestion = nextQuestion
	}
	return result, nil
}

// Report returns the final report, generating and attaching it on first
// request. Generation runs at most once per session; a completed report is
// returned verbatim on every later call.
func (o *Orchestrator) Report(ctx context.Context, userID, sessionID int64) (*models.Report, error) {
	if report, ok := o.cache.Report(ctx, userID, sessionID); ok {
		return report, nil
	}
	s, err := o.store.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.FinalReport != nil {
		o.cache.StoreReport(ctx, userID, s.ID, s.FinalReport)
		return s.FinalReport, nil
	}

	provider, err := o.providers.Provider(ctx, userID)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	report, err := provider.Report(callCtx, s.Rounds, s.Config)
	if err != nil {
		return nil, generationError("report", err)
	}

	s.FinalReport = report
	s.Status = models.StatusCompleted
	if err := o.store.Update(ctx, s); err != nil {
		return nil, err
	}
	o.cache.Invalidate(ctx, userID, 0)
	o.cache.StoreReport(ctx, userID, s.ID, report)
	return report, nil
}

// History lists up to 20 of the owner's most recently updated sessions.
// Read-only; no session is mutated.
func (o *Orchestrator) History(ctx context.Context, userID int64) ([]models.SessionSummary, error) {
	if summaries, ok := o.cache.History(ctx, userID); ok {
		return summaries, nil
	}
	sessions, err := o.store.ListRecent(ctx, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summary := models.SessionSummary{
			SessionID:       s.ID,
			TargetRole:      s.Config.TargetRole,
			Difficulty:      s.Config.Difficulty,
			NumInterviewers: s.Config.NumInterviewers,
			DurationMinutes: s.Config.DurationMinutes,
			Status:          s.Status,
			UpdatedAt:       s.UpdatedAt,
			Summary:         "No summary available.",
		}
		if s.FinalReport != nil {
			if s.FinalReport.Summary.OverallImpression != "" {
				summary.Summary = s.FinalReport.Summary.OverallImpression
			}
			summary.HireRecommendation = s.FinalReport.Summary.HireRecommendation
		}
		summaries = append(summaries, summary)
	}
	o.cache.StoreHistory(ctx, userID, summaries)
	return summaries, nil
}

// Delete removes the session permanently. No soft delete.
func (o *Orchestrator) Delete(ctx context.Context, userID, sessionID int64) error {
	if err := o.store.Delete(ctx, userID, sessionID); err != nil {
		return err
	}
	o.cache.Invalidate(ctx, userID, sessionID)
	log.Printf("interview session %d deleted by user %d", sessionID, userID)
	return nil
}

func validateConfig(cfg models.SessionConfig) error {
	if strings.TrimSpace(cfg.TargetRole) == "" {
		return fmt.Errorf("%w: target_role is required", ErrInvalidConfig)
	}
	if !models.ValidDifficulty(cfg.Difficulty) {
		return fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidConfig)
	}
	if cfg.NumInterviewers < 1 || cfg.NumInterviewers > 3 {
		return fmt.Errorf("%w: num_interviewers must be between 1 and 3", ErrInvalidConfig)
	}
	if cfg.DurationMinutes < 5 || cfg.DurationMinutes > 90 {
		return fmt.Errorf("%w: duration_minutes must be between 5 and 90", ErrInvalidConfig)
	}
	return nil
}

func generationError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrGenerationTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrGeneration, op, err)
}
