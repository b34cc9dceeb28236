// Package console runs the planning flow as a line-oriented terminal dialog.
package console

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/internal/lateness"
	"github.com/classcommute/internal/mail"
	"github.com/classcommute/internal/reference"
	"github.com/classcommute/internal/session"
	"github.com/classcommute/pkg/commute/models"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const suggestionLimit = 5

// ErrInputClosed is returned when input ends before a required answer.
var ErrInputClosed = errors.New("input closed")

// Options pre-answer prompts. Empty fields are asked for interactively.
// Notify and Send take "yes" or "no".
type Options struct {
	ID      string
	Station string
	Class   string
	Start   string
	Notify  string
	Send    string
	Format  string
}

func (o Options) scripted() bool {
	return o.Station != "" || o.Class != "" || o.Start != ""
}

type Shell struct {
	in       *bufio.Scanner
	out      io.Writer
	prompt   io.Writer
	ref      *reference.Data
	students []models.Student
	planner  *lateness.Planner
	sender   *mail.Sender
	penalty  int
	logger   logger.Logger
	now      func() time.Time
}

// New creates a shell reading answers from in. Results go to out and
// questions to prompt, so JSON output stays clean when prompt is stderr.
func New(in io.Reader, out, prompt io.Writer, ref *reference.Data, students []models.Student,
	sender *mail.Sender, delayPenalty int, log logger.Logger) *Shell {
	return &Shell{
		in:       bufio.NewScanner(in),
		out:      out,
		prompt:   prompt,
		ref:      ref,
		students: students,
		planner:  lateness.NewPlanner(ref, log),
		sender:   sender,
		penalty:  delayPenalty,
		logger:   log,
		now:      time.Now,
	}
}

// Run logs the student in and plans trips until the student stops.
func (sh *Shell) Run(opts Options) error {
	if opts.Format == "" {
		opts.Format = FormatText
	}

	s, err := sh.login(opts.ID)
	if err != nil {
		return err
	}
	sh.logger.Info("Student logged in", "session", s.ID, "cuny_id", s.Student.ID)

	// flags answer one trip only
	scripted := opts.scripted()
	for {
		s, err = sh.plan(s, &opts)
		if err != nil {
			return err
		}

		if err := sh.render(s, opts.Format); err != nil {
			return err
		}

		if s.State == session.AwaitingConfirmation {
			notify, err := sh.answer(opts.Notify, s.Outcome.Prompt())
			if err != nil {
				return err
			}
			if s, err = sh.planner.Confirm(s, notify); err != nil {
				return err
			}
		}

		uri, err := sh.deliver(s, opts)
		if err != nil {
			return err
		}
		if opts.Format == FormatJSON {
			if err := sh.writeJSON(s, uri); err != nil {
				return err
			}
		}

		if scripted {
			break
		}
		again, err := sh.answer("", "Plan another trip?")
		if err != nil || !again {
			break
		}
		s = s.Reset()
	}

	sh.logger.Info("Student logged out", "session", s.ID)
	return nil
}

func (sh *Shell) login(preset string) (session.Session, error) {
	id, asked := preset, preset == ""
	for {
		if asked {
			line, err := sh.ask("CUNY ID: ")
			if err != nil {
				return session.Session{}, err
			}
			id = line
		}
		asked = true

		s, err := session.Login(sh.students, id, sh.penalty)
		if err == nil {
			fmt.Fprintf(sh.prompt, "Welcome, %s.\n", s.Student.Name)
			return s, nil
		}
		fmt.Fprintln(sh.prompt, err)
		id = ""
	}
}

// plan gathers class, station and start time, re-asking whatever the
// calculator rejects.
func (sh *Shell) plan(s session.Session, opts *Options) (session.Session, error) {
	var classText, station string
	var start models.ClockTime
	var haveClass, haveStation, haveStart bool

	for {
		var err error
		if !haveClass {
			if classText, err = sh.pickClass(s, opts.Class); err != nil {
				return s, err
			}
			opts.Class = ""
			haveClass = true
		}
		if !haveStation {
			if station, err = sh.pickStation(opts.Station); err != nil {
				return s, err
			}
			opts.Station = ""
			haveStation = true
		}
		if !haveStart {
			if start, err = sh.pickStart(opts.Start); err != nil {
				return s, err
			}
			opts.Start = ""
			haveStart = true
		}

		next, err := sh.planner.Plan(s, station, classText, start)
		if err == nil {
			return next, nil
		}

		var verr *lateness.ValidationError
		if !errors.As(err, &verr) {
			return s, err
		}
		fmt.Fprintln(sh.prompt, "Warning:", verr.Error())

		switch verr.Reason {
		case lateness.ReasonNoStation, lateness.ReasonLineUnresolved:
			haveStation = false
		default:
			haveClass = false
		}
	}
}

// pickClass resolves a class by list number, display text or class name.
func (sh *Shell) pickClass(s session.Session, preset string) (string, error) {
	options := s.ClassOptions()
	if len(options) == 0 {
		return "", lateness.ErrNoClass
	}

	choice := preset
	for {
		if choice == "" {
			fmt.Fprintln(sh.prompt, "Your classes:")
			for i, opt := range options {
				fmt.Fprintf(sh.prompt, "  %d. %s\n", i+1, opt)
			}
			line, err := sh.ask(fmt.Sprintf("Choose a class [1-%d]: ", len(options)))
			if err != nil {
				return "", err
			}
			choice = line
		}

		if text, ok := matchClass(options, s.Student.Classes, choice); ok {
			return text, nil
		}
		fmt.Fprintln(sh.prompt, lateness.ErrNoClass.Error())
		choice = ""
	}
}

func matchClass(options []string, classes []models.ClassInfo, choice string) (string, bool) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return "", false
	}
	if n, err := strconv.Atoi(choice); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for i, opt := range options {
		if opt == choice || strings.EqualFold(classes[i].Name, choice) {
			return opt, true
		}
	}
	return "", false
}

// pickStation accepts an exact station name. Unknown names print close
// matches and ask again. Blank names and names with no close match go to the
// calculator, which reports them.
func (sh *Shell) pickStation(preset string) (string, error) {
	name, asked := preset, preset == ""
	for {
		if asked {
			line, err := sh.ask("Station: ")
			if err != nil {
				return "", err
			}
			name = line
		}
		asked = true
		if name == "" {
			return "", nil
		}

		if sh.ref.HasStation(name) {
			return name, nil
		}
		suggestions := sh.ref.SuggestStations(name, suggestionLimit)
		if len(suggestions) == 0 {
			return name, nil
		}
		fmt.Fprintf(sh.prompt, "Unknown station %q. Did you mean:\n", name)
		for _, sug := range suggestions {
			fmt.Fprintf(sh.prompt, "  %s\n", sug)
		}
	}
}

// pickStart reads the departure time. A blank answer means now.
func (sh *Shell) pickStart(preset string) (models.ClockTime, error) {
	text := preset
	for {
		if text == "" {
			line, err := sh.ask("Leaving at (e.g. 9:30 AM, blank for now): ")
			if err != nil {
				return models.ClockTime{}, err
			}
			if strings.TrimSpace(line) == "" {
				now := sh.now()
				return models.NewClockTime(now.Hour(), now.Minute()), nil
			}
			text = line
		}

		t, err := models.ParseClockTime(text)
		if err == nil {
			return t, nil
		}
		sh.logger.Debug("Rejected start time", "input", text, "error", err)
		fmt.Fprintln(sh.prompt, "Could not read start time.")
		text = ""
	}
}

func (sh *Shell) render(s session.Session, format string) error {
	if format == FormatJSON {
		return nil
	}
	o := s.Outcome
	w := sh.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Station:  %s\n", s.Station)
	fmt.Fprintf(w, "Class:    %s\n", s.ClassText)
	fmt.Fprintf(w, "Service:  %s\n", o.StatusLine())
	fmt.Fprintf(w, "Arrival:  %s (%d min trip)\n", o.Arrival, o.TotalMinutes)
	fmt.Fprintln(w, o.Verdict())
	if len(o.Alternatives) > 0 {
		fmt.Fprintln(w, "Alternatives:")
		for _, alt := range o.Alternatives {
			fmt.Fprintf(w, "  %s\n", alt)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// deliver shows the accepted late notice and hands it to the mail composer
// when the student agrees. It returns the mailto URI when one was opened.
func (sh *Shell) deliver(s session.Session, opts Options) (string, error) {
	if s.EmailBody == "" {
		return "", nil
	}

	to := s.Outcome.ProfessorEmail
	fmt.Fprintf(sh.prompt, "To: %s\n\n%s\n\n", to, s.EmailBody)

	send, err := sh.answer(opts.Send, "Open this email in your mail app?")
	if err != nil || !send {
		return "", err
	}

	uri, err := sh.sender.Send(to, s.EmailBody)
	if err != nil {
		fmt.Fprintf(sh.prompt, "Could not open your mail app. Copy this link instead:\n%s\n", uri)
		return uri, nil
	}
	fmt.Fprintln(sh.prompt, "Your mail app should now show the draft.")
	return uri, nil
}

type jsonReport struct {
	Student    string          `json:"student"`
	CunyID     string          `json:"cuny_id"`
	Session    session.Session `json:"session"`
	State      string          `json:"state"`
	StatusLine string          `json:"status_line"`
	Verdict    string          `json:"verdict"`
	MailtoURI  string          `json:"mailto_uri,omitempty"`
}

func (sh *Shell) writeJSON(s session.Session, uri string) error {
	enc := json.NewEncoder(sh.out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Student:    s.Student.Name,
		CunyID:     s.Student.ID,
		Session:    s,
		State:      s.State.String(),
		StatusLine: s.Outcome.StatusLine(),
		Verdict:    s.Outcome.Verdict(),
		MailtoURI:  uri,
	})
}

// answer resolves a yes/no question from preset or by asking. End of input
// counts as no.
func (sh *Shell) answer(preset, question string) (bool, error) {
	if v, ok := parseYesNo(preset); ok {
		return v, nil
	}
	for {
		line, err := sh.ask(question + " [y/n]: ")
		if errors.Is(err, ErrInputClosed) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if v, ok := parseYesNo(line); ok {
			return v, nil
		}
	}
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true":
		return true, true
	case "n", "no", "false":
		return false, true
	}
	return false, false
}

func (sh *Shell) ask(question string) (string, error) {
	fmt.Fprint(sh.prompt, question)
	if !sh.in.Scan() {
		fmt.Fprintln(sh.prompt)
		if err := sh.in.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(sh.in.Text()), nil
}

// ListStations prints station names containing query, or all of them.
func ListStations(w io.Writer, ref *reference.Data, query string) int {
	names := ref.SuggestStations(query, 0)
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return len(names)
}
