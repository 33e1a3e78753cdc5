package session

import (
	"context"

	"interviewgo/internal/models"
)

// StartContent is what the provider produces for a new session.
type StartContent struct {
	Interviewers  []models.Interviewer
	FirstQuestion string
	Brief         string
}

// AnswerContext carries the full round history plus budget context for
// scoring one answer. The provider sees everything the session knows.
type AnswerContext struct {
	Config           models.SessionConfig
	Interviewers     []models.Interviewer
	Rounds           []models.Round
	InterviewerName  string
	Question         string
	Answer           string
	Skipped          bool
	Round            int
	MaxRounds        int
	RemainingSeconds int
}

// AnswerContent is the provider's verdict on one answer.
type AnswerContent struct {
	Feedback       models.Feedback
	NextQuestion   string
	ShouldContinue bool
	PenaltySeconds int
	PenaltyReason  string
}

// ContentProvider is the contract to the external generator. All three
// operations are request/response, potentially slow and fallible; the core
// never retries them and never persists state while one is in flight.
type ContentProvider interface {
	Start(ctx context.Context, cfg models.SessionConfig) (*StartContent, error)
	Answer(ctx context.Context, ac AnswerContext) (*AnswerContent, error)
	Report(ctx context.Context, rounds []models.Round, cfg models.SessionConfig) (*models.Report, error)
}

// ProviderFactory resolves the content provider for a caller. Implementations
// handle provider selection and credentials so the orchestrator does not.
type ProviderFactory interface {
	Provider(ctx context.Context, userID int64) (ContentProvider, error)
}
