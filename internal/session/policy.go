package session

import "interviewgo/internal/models"

// Timing and round policy. Pure functions so the budget accounting and the
// continuation rule can be tested apart from the orchestrator.

const (
	// MaxPenaltySeconds caps a single provider-issued penalty.
	MaxPenaltySeconds = 180

	// MinBudgetSeconds is the floor for the initial time budget.
	MinBudgetSeconds = 60

	// MinRounds is the floor for the per-session round bound.
	MinRounds = 3

	// DefaultInterviewerName is used when the panel is empty.
	DefaultInterviewerName = "Interviewer"
)

// DeductElapsed subtracts elapsed answer time from the remaining budget.
// Negative elapsed values count as zero; the budget never goes below zero.
func DeductElapsed(remaining, elapsed int) int {
	if elapsed < 0 {
		elapsed = 0
	}
	remaining -= elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DeductPenalty subtracts a provider penalty, clamped to [0, MaxPenaltySeconds].
func DeductPenalty(remaining, penalty int) int {
	return DeductElapsed(remaining, ClampPenalty(penalty))
}

// ClampPenalty bounds a raw provider penalty to [0, MaxPenaltySeconds].
func ClampPenalty(penalty int) int {
	if penalty < 0 {
		return 0
	}
	if penalty > MaxPenaltySeconds {
		return MaxPenaltySeconds
	}
	return penalty
}

// MaxRounds derives the round bound from the requested duration: one round
// per three minutes, never fewer than MinRounds.
func MaxRounds(durationMinutes int) int {
	n := durationMinutes / 3
	if n < MinRounds {
		return MinRounds
	}
	return n
}

// InitialBudget converts the requested duration to seconds, never fewer
// than MinBudgetSeconds.
func InitialBudget(durationMinutes int) int {
	s := durationMinutes * 60
	if s < MinBudgetSeconds {
		return MinBudgetSeconds
	}
	return s
}

// ShouldContinue is the single continuation predicate: the session advances
// only while the provider wants to continue AND time remains AND the round
// bound has not been reached. Any false terminates the session.
func ShouldContinue(providerContinue bool, remaining, round, maxRounds int) bool {
	return providerContinue && remaining > 0 && round < maxRounds
}

// NextInterviewer picks the interviewer for the round (1-based counter) by
// round-robin over the fixed panel. An empty panel falls back to a
// placeholder name rather than failing.
func NextInterviewer(panel []models.Interviewer, round int) string {
	if len(panel) == 0 {
		return DefaultInterviewerName
	}
	if round < 0 {
		round = 0
	}
	return panel[round%len(panel)].Name
}
