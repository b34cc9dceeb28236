package lateness

import (
	"errors"
	"testing"

	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/internal/session"
	"github.com/classcommute/pkg/commute/models"
)

func newSession(t *testing.T) session.Session {
	t.Helper()
	s, err := session.Login([]models.Student{student}, student.ID, 0)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return s
}

func TestPlanOnTimeGoesStraightToResult(t *testing.T) {
	p := NewPlanner(timesSquare(), logger.Discard())

	s, err := p.Plan(newSession(t), "Times Sq-42 St", "Algorithms – 10:00 AM - 11:00 AM", clock(9, 0))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.State != session.ResultReady {
		t.Errorf("Expected result_ready, got %s", s.State)
	}
	if s.EmailBody != "" {
		t.Errorf("Expected no email body, got %q", s.EmailBody)
	}
	if s.Station != "Times Sq-42 St" || s.Outcome.Arrival != clock(9, 30) {
		t.Errorf("Session not updated: %+v", s)
	}

	if _, err := p.Confirm(s, true); !errors.Is(err, ErrNotAwaitingConfirmation) {
		t.Errorf("Confirm outside the late branch should fail, got %v", err)
	}
}

func TestPlanLateAwaitsConfirmation(t *testing.T) {
	p := NewPlanner(timesSquare(), logger.Discard())

	s, err := p.Plan(newSession(t), "Times Sq-42 St", "Algorithms – 10:00 AM - 11:00 AM", clock(9, 50))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.State != session.AwaitingConfirmation {
		t.Fatalf("Expected awaiting_confirmation, got %s", s.State)
	}
	if s.EmailBody != "" {
		t.Error("Body stays empty until the student accepts")
	}

	accepted, err := p.Confirm(s, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if accepted.State != session.ResultReady || accepted.EmailBody != s.Outcome.DraftEmail {
		t.Errorf("Accepting should keep the draft, got state %s body %q", accepted.State, accepted.EmailBody)
	}

	declined, err := p.Confirm(s, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if declined.State != session.ResultReady || declined.EmailBody != "" {
		t.Errorf("Declining should clear the body, got state %s body %q", declined.State, declined.EmailBody)
	}
	if !declined.Outcome.Late || declined.Outcome.Offset != 20 {
		t.Errorf("Declining keeps the late result, got %+v", declined.Outcome)
	}
}

func TestPlanValidationLeavesSessionUntouched(t *testing.T) {
	p := NewPlanner(timesSquare(), logger.Discard())

	before, err := p.Plan(newSession(t), "Times Sq-42 St", "Algorithms – 10:00 AM - 11:00 AM", clock(9, 0))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	after, err := p.Plan(before, "Atlantis", "Algorithms – 10:00 AM - 11:00 AM", clock(9, 0))
	if !errors.Is(err, ErrLineUnresolved) {
		t.Fatalf("Expected ErrLineUnresolved, got %v", err)
	}
	if after.Station != before.Station || after.State != before.State || after.Outcome.Arrival != before.Outcome.Arrival {
		t.Errorf("Session changed on a rejected run: %+v", after)
	}
}

func TestPlanUsesSessionDelayPenalty(t *testing.T) {
	p := NewPlanner(timesSquare(), logger.Discard())
	s := newSession(t)
	s.DelayPenalty = 10

	s, err := p.Plan(s, "Times Sq-42 St", "Algorithms – 10:00 AM - 11:00 AM", clock(9, 30))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Outcome.TotalMinutes != 40 || !s.Outcome.Late || s.Outcome.Offset != 10 {
		t.Errorf("Expected 40 total minutes and 10 late, got %+v", s.Outcome)
	}
}
