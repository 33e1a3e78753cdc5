package session

import (
	"testing"

	"interviewgo/internal/models"
)

func TestMaxRounds(t *testing.T) {
	cases := []struct {
		duration int
		want     int
	}{
		{5, 3},
		{9, 3},
		{10, 3},
		{12, 4},
		{20, 6},
		{90, 30},
		{0, 3},
	}
	for _, tc := range cases {
		if got := MaxRounds(tc.duration); got != tc.want {
			t.Errorf("MaxRounds(%d) = %d, want %d", tc.duration, got, tc.want)
		}
	}
}

func TestInitialBudget(t *testing.T) {
	cases := []struct {
		duration int
		want     int
	}{
		{5, 300},
		{20, 1200},
		{90, 5400},
		{0, 60},
		{-3, 60},
	}
	for _, tc := range cases {
		if got := InitialBudget(tc.duration); got != tc.want {
			t.Errorf("InitialBudget(%d) = %d, want %d", tc.duration, got, tc.want)
		}
	}
}

func TestDeductElapsed(t *testing.T) {
	if got := DeductElapsed(1200, 90); got != 1110 {
		t.Errorf("DeductElapsed(1200, 90) = %d, want 1110", got)
	}
	// Overshooting the budget clamps to zero, never negative.
	if got := DeductElapsed(1200, 1250); got != 0 {
		t.Errorf("DeductElapsed(1200, 1250) = %d, want 0", got)
	}
	// Negative elapsed reports count as zero.
	if got := DeductElapsed(600, -30); got != 600 {
		t.Errorf("DeductElapsed(600, -30) = %d, want 600", got)
	}
}

func TestClampPenalty(t *testing.T) {
	cases := []struct {
		penalty int
		want    int
	}{
		{0, 0},
		{45, 45},
		{180, 180},
		{500, 180},
		{-10, 0},
	}
	for _, tc := range cases {
		if got := ClampPenalty(tc.penalty); got != tc.want {
			t.Errorf("ClampPenalty(%d) = %d, want %d", tc.penalty, got, tc.want)
		}
	}
}

func TestDeductPenalty(t *testing.T) {
	// Raw penalty is clamped before deduction.
	if got := DeductPenalty(200, 500); got != 20 {
		t.Errorf("DeductPenalty(200, 500) = %d, want 20", got)
	}
	if got := DeductPenalty(100, 180); got != 0 {
		t.Errorf("DeductPenalty(100, 180) = %d, want 0", got)
	}
	if got := DeductPenalty(100, -5); got != 100 {
		t.Errorf("DeductPenalty(100, -5) = %d, want 100", got)
	}
}

func TestShouldContinue(t *testing.T) {
	cases := []struct {
		name             string
		providerContinue bool
		remaining        int
		round            int
		maxRounds        int
		want             bool
	}{
		{"all conditions hold", true, 300, 2, 6, true},
		{"provider stops", false, 300, 2, 6, false},
		{"time exhausted", true, 0, 2, 6, false},
		{"round bound reached", true, 300, 6, 6, false},
		{"last allowed round", true, 300, 5, 6, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldContinue(tc.providerContinue, tc.remaining, tc.round, tc.maxRounds)
			if got != tc.want {
				t.Errorf("ShouldContinue(%v, %d, %d, %d) = %v, want %v",
					tc.providerContinue, tc.remaining, tc.round, tc.maxRounds, got, tc.want)
			}
		})
	}
}

func TestNextInterviewer(t *testing.T) {
	panel := []models.Interviewer{
		{Name: "Alice"},
		{Name: "Bob"},
		{Name: "Carol"},
	}
	wants := []string{"Alice", "Bob", "Carol", "Alice", "Bob"}
	for round, want := range wants {
		if got := NextInterviewer(panel, round); got != want {
			t.Errorf("NextInterviewer(panel, %d) = %q, want %q", round, got, want)
		}
	}
	if got := NextInterviewer(nil, 0); got != DefaultInterviewerName {
		t.Errorf("NextInterviewer(nil, 0) = %q, want %q", got, DefaultInterviewerName)
	}
	if got := NextInterviewer(panel, -1); got != "Alice" {
		t.Errorf("NextInterviewer(panel, -1) = %q, want Alice", got)
	}
}
