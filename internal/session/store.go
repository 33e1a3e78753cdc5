package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"interviewgo/internal/models"
)

// Store is the persistence contract for session records. Get and Delete are
// owner-scoped; Update is a compare-and-swap keyed by the session version so
// racing writers for the same session cannot interleave a load-mutate-store
// sequence.
type Store interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	Get(ctx context.Context, userID, sessionID int64) (*models.InterviewSession, error)
	Update(ctx context.Context, s *models.InterviewSession) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]*models.InterviewSession, error)
	Delete(ctx context.Context, userID, sessionID int64) error
}

// sessionState is the JSON document persisted in the state_json column. It is
// an adapter at the persistence boundary only; in-memory code works with the
// typed InterviewSession.
type sessionState struct {
	CareerLevel      string               `json:"career_level"`
	PresentSkills    []string             `json:"present_skills,omitempty"`
	MissingSkills    []string             `json:"missing_skills,omitempty"`
	Brief            string               `json:"session_brief"`
	Interviewers     []models.Interviewer `json:"interviewers"`
	Rounds           []models.Round       `json:"questions"`
	Round            int                  `json:"round"`
	MaxRounds        int                  `json:"max_rounds"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	FinalReport      *models.Report       `json:"final_report,omitempty"`
}

// SQLStore persists sessions in the interview_sessions table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts a new session and fills in its id, version and timestamps.
func (st *SQLStore) Create(ctx context.Context, s *models.InterviewSession) error {
	if s == nil || s.UserID <= 0 {
		return errors.New("user_id is required")
	}
	doc, err := json.Marshal(encodeState(s))
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	now := time.Now().UTC()
	res, err := st.db.ExecContext(ctx,
		`INSERT INTO interview_sessions
		 (user_id, target_role, difficulty, num_interviewers, duration_minutes, status, version, state_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		s.UserID, s.Config.TargetRole, s.Config.Difficulty, s.Config.NumInterviewers,
		s.Config.DurationMinutes, s.Status, doc, now, now,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	s.ID = id
	s.Version = 1
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// Get loads one session for the owner. A missing row and an owner mismatch
// are indistinguishable to the caller.
func (st *SQLStore) Get(ctx context.Context, userID, sessionID int64) (*models.InterviewSession, error) {
	row := st.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, target_role, difficulty, num_interviewers, duration_minutes,
		        status, version, state_json, created_at, updated_at
		 FROM interview_sessions WHERE session_id = ? AND user_id = ?`,
		sessionID, userID,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// Update writes the session back iff its version still matches, bumping the
// version on success. ErrConflict means a concurrent writer got there first.
func (st *SQLStore) Update(ctx context.Context, s *models.InterviewSession) error {
	if s == nil || s.ID <= 0 {
		return errors.New("invalid session")
	}
	doc, err := json.Marshal(encodeState(s))
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	now := time.Now().UTC()
	res, err := st.db.ExecContext(ctx,
		`UPDATE interview_sessions
		 SET status = ?, version = version + 1, state_json = ?, updated_at = ?
		 WHERE session_id = ? AND user_id = ? AND version = ?`,
		s.Status, doc, now, s.ID, s.UserID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row vanished or the version moved under us.
		var exists bool
		if err := st.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM interview_sessions WHERE session_id = ? AND user_id = ?)`,
			s.ID, s.UserID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("verify session: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	s.Version++
	s.UpdatedAt = now
	return nil
}

// ListRecent returns the owner's sessions ordered by last activity.
func (st *SQLStore) ListRecent(ctx context.Context, userID int64, limit int) ([]*models.InterviewSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := st.db.QueryContext(ctx,
		`SELECT session_id, user_id, target_role, difficulty, num_interviewers, duration_minutes,
		        status, version, state_json, created_at, updated_at
		 FROM interview_sessions WHERE user_id = ?
		 ORDER BY updated_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.InterviewSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Delete removes the session permanently. ErrNotFound covers both a missing
// session and one owned by someone else.
func (st *SQLStore) Delete(ctx context.Context, userID, sessionID int64) error {
	if sessionID <= 0 {
		return ErrNotFound
	}
	res, err := st.db.ExecContext(ctx,
		`DELETE FROM interview_sessions WHERE session_id = ? AND user_id = ?`,
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.InterviewSession, error) {
	var (
		s   models.InterviewSession
		doc []byte
	)
	if err := row.Scan(
		&s.ID, &s.UserID, &s.Config.TargetRole, &s.Config.Difficulty,
		&s.Config.NumInterviewers, &s.Config.DurationMinutes,
		&s.Status, &s.Version, &doc, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var state sessionState
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	s.Config.CareerLevel = state.CareerLevel
	s.Config.PresentSkills = state.PresentSkills
	s.Config.MissingSkills = state.MissingSkills
	s.Brief = state.Brief
	s.Interviewers = state.Interviewers
	s.Rounds = state.Rounds
	s.Round = state.Round
	s.MaxRounds = state.MaxRounds
	s.RemainingSeconds = state.RemainingSeconds
	s.FinalReport = state.FinalReport
	return &s, nil
}

func encodeState(s *models.InterviewSession) sessionState {
	return sessionState{
		CareerLevel:      s.Config.CareerLevel,
		PresentSkills:    s.Config.PresentSkills,
		MissingSkills:    s.Config.MissingSkills,
		Brief:            s.Brief,
		Interviewers:     s.Interviewers,
		Rounds:           s.Rounds,
		Round:            s.Round,
		MaxRounds:        s.MaxRounds,
		RemainingSeconds: s.RemainingSeconds,
		FinalReport:      s.FinalReport,
	}
}
