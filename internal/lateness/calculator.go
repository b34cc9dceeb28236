// Package lateness decides whether a student reaches class on time.
//
// Compute is a pure function over its inputs and the loaded reference
// tables. Planner wraps it in the planning flow:
//
//	AwaitingStationAndClass -> AwaitingConfirmation (late only) -> ResultReady
//
// Lookup misses never fail a run: an unknown (station, line) pair travels for
// DefaultTravelMinutes and a line without an alert runs models.GoodService.
package lateness

import (
	"regexp"
	"strings"

	"github.com/classcommute/internal/reference"
	"github.com/classcommute/internal/session"
	"github.com/classcommute/pkg/commute/models"
)

// DefaultTravelMinutes is used when travel_times.json has no entry.
const DefaultTravelMinutes = 30

var timeRangeSeparator = regexp.MustCompile(`\s*-\s*`)

// Request is everything one planning run depends on besides reference data.
type Request struct {
	Station      string
	ClassText    string
	StartTime    models.ClockTime
	Student      models.Student
	DelayPenalty int
}

// Compute runs the lateness calculation. The only errors are
// *ValidationError values.
func Compute(req Request, ref *reference.Data) (session.Outcome, error) {
	station := strings.TrimSpace(req.Station)
	if station == "" {
		return session.Outcome{}, ErrNoStation
	}
	classText := strings.TrimSpace(req.ClassText)
	if classText == "" {
		return session.Outcome{}, ErrNoClass
	}

	classStart, err := ParseClassStart(classText)
	if err != nil {
		return session.Outcome{}, err
	}

	primary, ok := ref.PrimaryLine(station)
	if !ok {
		return session.Outcome{}, ErrLineUnresolved
	}

	base, ok := ref.TravelMinutes(station, primary)
	if !ok {
		base = DefaultTravelMinutes
	}
	total := base + req.DelayPenalty

	status, ok := ref.ServiceStatus(primary)
	if !ok {
		status = models.GoodService
	}

	arrival := req.StartTime.AddMinutes(total)
	diff := classStart.MinutesTo(arrival)

	out := session.Outcome{
		ClassStart:    classStart,
		StartTime:     req.StartTime,
		PrimaryLine:   primary,
		BaseMinutes:   base,
		TotalMinutes:  total,
		Arrival:       arrival,
		ServiceStatus: status,
		Alternatives:  []string{},
	}
	if arrival.After(classStart) {
		out.Late = true
		out.Offset = diff
	} else {
		out.Offset = -diff
	}

	out.ProfessorName, out.ProfessorEmail = professorFor(req.Student, classText)

	if out.Late {
		out.DraftEmail = DraftEmail(out.ProfessorName, req.Student.Name, out.Offset)
	}

	if status != models.GoodService {
		out.Alternatives = Alternatives(ref, station, primary)
	}

	return out, nil
}

// ParseClassStart reads the start of "<class> – <start> - <end>".
func ParseClassStart(classText string) (models.ClockTime, error) {
	parts := strings.Split(classText, models.ClassSeparator)
	if len(parts) < 2 {
		return models.ClockTime{}, ErrClassFormat
	}

	timeRange := strings.TrimSpace(parts[1])
	startText := strings.TrimSpace(timeRangeSeparator.Split(timeRange, -1)[0])

	start, err := models.ParseClockTime(startText, models.TwelveHourLayouts...)
	if err != nil {
		return models.ClockTime{}, &ValidationError{Reason: ReasonClassStart, Err: err}
	}
	return start, nil
}

// professorFor returns the first class whose name occurs anywhere in
// classText. The match is deliberately loose: "Algorithms" also matches
// "Algorithms II – ...", so class order in the roster decides.
func professorFor(student models.Student, classText string) (name, email string) {
	for _, c := range student.Classes {
		if strings.Contains(classText, c.Name) {
			return c.Professor, c.ProfessorEmail
		}
	}
	return "", ""
}

// Alternatives lists the other lines serving station, primary removed once.
func Alternatives(ref *reference.Data, station, primary string) []string {
	lines, _ := ref.LinesServing(station)

	for i, l := range lines {
		if l == primary {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, "Take "+l+" Train instead")
	}
	return out
}
