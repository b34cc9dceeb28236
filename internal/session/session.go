package session

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/classcommute/internal/roster"
	"github.com/classcommute/pkg/commute/models"
)

var (
	ErrEmptyID         = errors.New("Please enter your CUNY ID.")
	ErrStudentNotFound = errors.New("Account not found.")
)

// State is the position of a session in the planning flow.
type State int

const (
	AwaitingStationAndClass State = iota
	AwaitingConfirmation
	ResultReady
)

func (s State) String() string {
	switch s {
	case AwaitingStationAndClass:
		return "awaiting_station_and_class"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case ResultReady:
		return "result_ready"
	default:
		return "unknown"
	}
}

// Outcome is what one planning run produced.
type Outcome struct {
	ClassStart     models.ClockTime `json:"class_start"`
	StartTime      models.ClockTime `json:"start_time"`
	PrimaryLine    string           `json:"primary_line"`
	BaseMinutes    int              `json:"base_minutes"`
	TotalMinutes   int              `json:"total_minutes"`
	Arrival        models.ClockTime `json:"arrival"`
	Late           bool             `json:"late"`
	Offset         int              `json:"offset_minutes"`
	ServiceStatus  string           `json:"service_status"`
	Alternatives   []string         `json:"alternatives"`
	ProfessorName  string           `json:"professor"`
	ProfessorEmail string           `json:"professor_email"`
	DraftEmail     string           `json:"draft_email,omitempty"`
}

// Session is the state of one logged-in student. It is passed and returned
// by value; every transition produces a new Session.
type Session struct {
	ID           string         `json:"id"`
	Student      models.Student `json:"-"`
	DelayPenalty int            `json:"delay_penalty"`
	State        State          `json:"-"`
	Station      string         `json:"station"`
	ClassText    string         `json:"class"`
	Outcome      Outcome        `json:"outcome"`
	EmailBody    string         `json:"email_body"`
}

// Login looks the student up by ID and opens a fresh session.
func Login(students []models.Student, id string, delayPenalty int) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrEmptyID
	}

	st, ok := roster.FindByID(students, id)
	if !ok {
		return Session{}, ErrStudentNotFound
	}

	return Session{
		ID:           uuid.NewString(),
		Student:      st,
		DelayPenalty: delayPenalty,
		State:        AwaitingStationAndClass,
	}, nil
}

// ClassOptions lists the display texts the student picks a class from.
func (s Session) ClassOptions() []string {
	opts := make([]string, 0, len(s.Student.Classes))
	for _, c := range s.Student.Classes {
		opts = append(opts, c.DisplayText())
	}
	return opts
}

// Reset returns the session to the start of the planning flow, keeping the
// student and the delay penalty.
func (s Session) Reset() Session {
	return Session{
		ID:           s.ID,
		Student:      s.Student,
		DelayPenalty: s.DelayPenalty,
		State:        AwaitingStationAndClass,
	}
}
