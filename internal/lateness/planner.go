package lateness

import (
	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/internal/reference"
	"github.com/classcommute/internal/session"
	"github.com/classcommute/pkg/commute/models"
)

// Planner drives a session through the planning flow.
type Planner struct {
	ref    *reference.Data
	logger logger.Logger
}

func NewPlanner(ref *reference.Data, logger logger.Logger) *Planner {
	return &Planner{ref: ref, logger: logger}
}

// Plan computes a result for the selection. A late result waits for Confirm;
// anything else is ready immediately. On a validation error the session is
// returned unchanged.
func (p *Planner) Plan(s session.Session, station, classText string, start models.ClockTime) (session.Session, error) {
	out, err := Compute(Request{
		Station:      station,
		ClassText:    classText,
		StartTime:    start,
		Student:      s.Student,
		DelayPenalty: s.DelayPenalty,
	}, p.ref)
	if err != nil {
		p.logger.Warn("Planning rejected", "session", s.ID, "station", station, "class", classText, "error", err)
		return s, err
	}

	next := s
	next.Station = station
	next.ClassText = classText
	next.Outcome = out
	next.EmailBody = ""
	if out.Late {
		next.State = session.AwaitingConfirmation
	} else {
		next.State = session.ResultReady
	}

	p.logger.Info("Planned commute",
		"session", s.ID,
		"station", station,
		"line", out.PrimaryLine,
		"status", out.ServiceStatus,
		"arrival", out.Arrival.String(),
		"late", out.Late,
		"offset_minutes", out.Offset,
	)
	return next, nil
}

// Confirm answers the late-notice question. Accepting keeps the drafted email
// as the body to send; declining leaves the body empty.
func (p *Planner) Confirm(s session.Session, notify bool) (session.Session, error) {
	if s.State != session.AwaitingConfirmation {
		return s, ErrNotAwaitingConfirmation
	}

	next := s
	next.State = session.ResultReady
	if notify {
		next.EmailBody = s.Outcome.DraftEmail
	} else {
		next.EmailBody = ""
	}

	p.logger.Debug("Late notice answered", "session", s.ID, "notify", notify)
	return next, nil
}
