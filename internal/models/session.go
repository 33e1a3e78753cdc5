package models

import "time"

// Difficulty is the fixed difficulty tier enumeration.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ValidDifficulty reports whether d is one of the known tiers.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Interviewer is one persona on the panel, fixed at session start.
type Interviewer struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

// Feedback is the provider's scoring of a single answer.
type Feedback struct {
	Summary      string   `json:"summary,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Score        int      `json:"score,omitempty"`
}

// Empty reports whether the round has not been scored yet.
func (f Feedback) Empty() bool {
	return f.Summary == "" && len(f.Strengths) == 0 && len(f.Improvements) == 0 && f.Score == 0
}

// Round is one question/answer/feedback triple. Answer stays empty while
// the round is pending.
type Round struct {
	InterviewerName string   `json:"interviewer_name"`
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	Feedback        Feedback `json:"feedback"`
}

// ReportSummary is the headline block of a final report.
type ReportSummary struct {
	OverallImpression  string `json:"overall_impression"`
	HireRecommendation string `json:"hire_recommendation"`
	Score              int    `json:"score"`
}

// RoundNote is the per-round section of a final report.
type RoundNote struct {
	Question   string `json:"question"`
	Assessment string `json:"assessment"`
}

// Report is the structured final report, generated at most once per session.
type Report struct {
	Summary      ReportSummary `json:"summary"`
	RoundNotes   []RoundNote   `json:"round_notes,omitempty"`
	Strengths    []string      `json:"strengths,omitempty"`
	Improvements []string      `json:"improvements,omitempty"`
}

// SessionConfig is the immutable configuration supplied at session start.
type SessionConfig struct {
	TargetRole      string     `json:"target_role"`
	Difficulty      Difficulty `json:"difficulty"`
	NumInterviewers int        `json:"num_interviewers"`
	DurationMinutes int        `json:"duration_minutes"`
	CareerLevel     string     `json:"career_level"`
	PresentSkills   []string   `json:"present_skills"`
	MissingSkills   []string   `json:"missing_skills"`
}

// InterviewSession is the unit of orchestration. The whole record round-trips
// through the store between requests; the process keeps nothing in memory.
type InterviewSession struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`

	Config SessionConfig `json:"config"`
	Brief  string        `json:"brief"`

	Interviewers     []Interviewer `json:"interviewers"`
	Rounds           []Round       `json:"rounds"`
	Round            int           `json:"round"`
	MaxRounds        int           `json:"max_rounds"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Status           Status        `json:"status"`
	FinalReport      *Report       `json:"final_report,omitempty"`

	// Version guards concurrent writers at the store boundary.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingRound returns the round awaiting an answer, or nil when none exists.
func (s *InterviewSession) PendingRound() *Round {
	if len(s.Rounds) == 0 {
		return nil
	}
	last := &s.Rounds[len(s.Rounds)-1]
	if last.Answer != "" {
		return nil
	}
	return last
}

// SessionSummary is the history-listing projection of a session.
type SessionSummary struct {
	SessionID          int64      `json:"session_id"`
	TargetRole         string     `json:"target_role"`
	Difficulty         Difficulty `json:"difficulty"`
	NumInterviewers    int        `json:"num_interviewers"`
	DurationMinutes    int        `json:"duration_minutes"`
	Status             Status     `json:"status"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Summary            string     `json:"summary"`
	HireRecommendation string     `json:"hire_recommendation"`
}
