package lateness

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/classcommute/internal/reference"
	"github.com/classcommute/pkg/commute/models"
)

var student = models.Student{
	Name:  "Ana Reyes",
	Email: "ana@example.edu",
	ID:    "24000001",
	Classes: []models.ClassInfo{
		{Name: "Algorithms", Time: "10:00 AM - 11:00 AM", Professor: "Dr. Park", ProfessorEmail: "park@example.edu"},
		{Name: "Algorithms II", Time: "2:00 PM - 3:15 PM", Professor: "Dr. Lee", ProfessorEmail: "lee@example.edu"},
		{Name: "Physics", Time: "9:05 AM - 10:10 AM", Professor: "Dr. Ito", ProfessorEmail: "ito@example.edu"},
	},
}

func timesSquare() *reference.Data {
	return &reference.Data{
		Stations: []models.Station{
			{Name: "Times Sq-42 St", Lines: []string{"N", "Q", "R"}},
			{Name: "Court Sq", Lines: []string{"g", "7"}},
			{Name: "Nowhere", Lines: []string{}},
		},
	}
}

func clock(h, m int) models.ClockTime { return models.NewClockTime(h, m) }

func TestScenarioA_DefaultsOnTime(t *testing.T) {
	out, err := Compute(Request{
		Station:   "Times Sq-42 St",
		ClassText: "Algorithms – 10:00 AM - 11:00 AM",
		StartTime: clock(9, 30),
		Student:   student,
	}, timesSquare())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if out.BaseMinutes != 30 || out.TotalMinutes != 30 {
		t.Errorf("Expected 30 base and total minutes, got %d/%d", out.BaseMinutes, out.TotalMinutes)
	}
	if out.Arrival != clock(10, 0) {
		t.Errorf("Expected arrival 10:00, got %s", out.Arrival)
	}
	if out.Late || out.Offset != 0 {
		t.Errorf("Expected on time with offset 0, got late=%v offset=%d", out.Late, out.Offset)
	}
	if out.ServiceStatus != "GOOD SERVICE" {
		t.Errorf("Expected GOOD SERVICE, got %q", out.ServiceStatus)
	}
	if len(out.Alternatives) != 0 {
		t.Errorf("Expected no alternatives, got %v", out.Alternatives)
	}
	if out.DraftEmail != "" {
		t.Errorf("On-time result should have no draft, got %q", out.DraftEmail)
	}
	if out.ProfessorName != "Dr. Park" || out.ProfessorEmail != "park@example.edu" {
		t.Errorf("Unexpected professor %s <%s>", out.ProfessorName, out.ProfessorEmail)
	}
	if out.Verdict() != "You will arrive on time." {
		t.Errorf("Unexpected verdict %q", out.Verdict())
	}
	if out.StatusLine() != "N Line – GOOD SERVICE" {
		t.Errorf("Unexpected status line %q", out.StatusLine())
	}
}

func TestScenarioB_Alternatives(t *testing.T) {
	ref := timesSquare()
	ref.Alerts = []models.ServiceAlert{{Line: "N", Status: "DELAYS"}}
	ref.StationLines = []models.StationLines{{Station: "times sq-42 st", Lines: []string{"N", "Q", "R", "W"}}}

	out, err := Compute(Request{
		Station:   "Times Sq-42 St",
		ClassText: "Algorithms – 10:00 AM - 11:00 AM",
		StartTime: clock(9, 30),
		Student:   student,
	}, ref)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{"Take Q Train instead", "Take R Train instead", "Take W Train instead"}
	if !reflect.DeepEqual(out.Alternatives, expected) {
		t.Errorf("Expected %v, got %v", expected, out.Alternatives)
	}
	if out.StatusLine() != "N Line – DELAYS" {
		t.Errorf("Unexpected status line %q", out.StatusLine())
	}
}

func TestScenarioD_NonPaddedClassTime(t *testing.T) {
	start, err := ParseClassStart("Physics – 9:05 AM - 10:10 AM")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if start != clock(9, 5) {
		t.Errorf("Expected 09:05, got %s", start)
	}
}

func TestSignConvention(t *testing.T) {
	ref := &reference.Data{
		Stations:    []models.Station{{Name: "A", Lines: []string{"1"}}},
		TravelTimes: []models.TravelTime{{Station: "A", Line: "1", Minutes: 20}},
	}

	tests := []struct {
		name   string
		start  models.ClockTime
		late   bool
		offset int
	}{
		{"five minutes late", clock(9, 45), true, 5},
		{"five minutes early", clock(9, 35), false, 5},
		{"exactly on time", clock(9, 40), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compute(Request{
				Station:   "A",
				ClassText: "Algorithms – 10:00 AM - 11:00 AM",
				StartTime: tt.start,
				Student:   student,
			}, ref)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.Late != tt.late || out.Offset != tt.offset {
				t.Errorf("Expected late=%v offset=%d, got late=%v offset=%d", tt.late, tt.offset, out.Late, out.Offset)
			}
		})
	}
}

func TestVerdictText(t *testing.T) {
	ref := timesSquare()
	early, _ := Compute(Request{Station: "Times Sq-42 St", ClassText: "Algorithms – 10:00 AM - 11:00 AM", StartTime: clock(9, 0), Student: student}, ref)
	if early.Verdict() != "You will be 30 minutes early." {
		t.Errorf("Unexpected early verdict %q", early.Verdict())
	}

	late, _ := Compute(Request{Station: "Times Sq-42 St", ClassText: "Algorithms – 10:00 AM - 11:00 AM", StartTime: clock(9, 45), Student: student}, ref)
	if late.Verdict() != "You may be 15 minutes late." {
		t.Errorf("Unexpected late verdict %q", late.Verdict())
	}
	if late.Prompt() != "You may be 15 minutes late. Would you like to notify your professor?" {
		t.Errorf("Unexpected prompt %q", late.Prompt())
	}
}

func TestPrimaryLineUpperCased(t *testing.T) {
	ref := timesSquare()
	ref.TravelTimes = []models.TravelTime{{Station: "Court Sq", Line: "G", Minutes: 12}}

	out, err := Compute(Request{
		Station:   "Court Sq",
		ClassText: "Algorithms – 10:00 AM - 11:00 AM",
		StartTime: clock(9, 0),
		Student:   student,
	}, ref)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.PrimaryLine != "G" {
		t.Errorf("Expected upper-cased primary line G, got %q", out.PrimaryLine)
	}
	if out.BaseMinutes != 12 {
		t.Errorf("Expected travel time looked up under G, got %d", out.BaseMinutes)
	}
}

func TestDelayPenalty(t *testing.T) {
	out, err := Compute(Request{
		Station:      "Times Sq-42 St",
		ClassText:    "Algorithms – 10:00 AM - 11:00 AM",
		StartTime:    clock(9, 30),
		Student:      student,
		DelayPenalty: 7,
	}, timesSquare())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.BaseMinutes != 30 || out.TotalMinutes != 37 {
		t.Errorf("Expected 30 base / 37 total, got %d/%d", out.BaseMinutes, out.TotalMinutes)
	}
	if !out.Late || out.Offset != 7 {
		t.Errorf("Expected 7 minutes late, got late=%v offset=%d", out.Late, out.Offset)
	}
}

func TestLateDraftEmail(t *testing.T) {
	out, err := Compute(Request{
		Station:   "Times Sq-42 St",
		ClassText: "Algorithms – 10:00 AM - 11:00 AM",
		StartTime: clock(9, 40),
		Student:   student,
	}, timesSquare())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := "Hello Dr. Park,\n\n" +
		"I may arrive a few minutes late to class today due to subway delays.\n" +
		"Based on my commute, I might be about 10 minutes late.\n\n" +
		"Thank you for your understanding.\n\n" +
		"Best regards,\n" +
		"Ana Reyes"
	if out.DraftEmail != expected {
		t.Errorf("Unexpected draft:\n%s", out.DraftEmail)
	}
}

func TestLooseProfessorMatch(t *testing.T) {
	// "Algorithms" is a substring of the "Algorithms II" display text and is
	// listed first, so it wins.
	out, err := Compute(Request{
		Station:   "Times Sq-42 St",
		ClassText: "Algorithms II – 2:00 PM - 3:15 PM",
		StartTime: clock(13, 0),
		Student:   student,
	}, timesSquare())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.ProfessorName != "Dr. Park" {
		t.Errorf("Expected first substring match Dr. Park, got %s", out.ProfessorName)
	}
}

func TestArrivalWrapsPastMidnight(t *testing.T) {
	out, err := Compute(Request{
		Station:   "Times Sq-42 St",
		ClassText: "Night Lab – 11:50 PM - 12:30 AM",
		StartTime: clock(23, 45),
		Student:   student,
	}, timesSquare())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Arrival != clock(0, 15) {
		t.Errorf("Expected arrival 00:15, got %s", out.Arrival)
	}
	// 00:15 is earlier in the day than 23:50
	if out.Late || out.Offset != 1415 {
		t.Errorf("Expected not late with offset 1415, got late=%v offset=%d", out.Late, out.Offset)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		station string
		class   string
		want    error
		message string
	}{
		{"empty station", "  ", "Algorithms – 10:00 AM - 11:00 AM", ErrNoStation, "Please select a station."},
		{"empty class", "Times Sq-42 St", "", ErrNoClass, "Please select a class."},
		{"no separator", "Times Sq-42 St", "Algorithms 10:00 AM - 11:00 AM", ErrClassFormat, "Invalid class time format."},
		{"unparseable start", "Times Sq-42 St", "Algorithms – whenever", ErrClassStart, "Could not read class start time."},
		{"unknown station", "Atlantis", "Algorithms – 10:00 AM - 11:00 AM", ErrLineUnresolved, "Could not determine train line."},
		{"station without lines", "Nowhere", "Algorithms – 10:00 AM - 11:00 AM", ErrLineUnresolved, "Could not determine train line."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(Request{
				Station:   tt.station,
				ClassText: tt.class,
				StartTime: clock(9, 0),
				Student:   student,
			}, timesSquare())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
			if verr.Error() != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, verr.Error())
			}
		})
	}
}

func TestComputeIdempotent(t *testing.T) {
	ref := timesSquare()
	ref.Alerts = []models.ServiceAlert{{Line: "N", Status: "DELAYS"}}
	ref.StationLines = []models.StationLines{{Station: "Times Sq-42 St", Lines: []string{"N", "Q"}}}
	req := Request{
		Station:   "Times Sq-42 St",
		ClassText: "Algorithms – 10:00 AM - 11:00 AM",
		StartTime: clock(9, 50),
		Student:   student,
	}

	first, err := Compute(req, ref)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := Compute(req, ref)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results, got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(ref.StationLines[0].Lines, []string{"N", "Q"}) {
		t.Errorf("Reference data must stay untouched, got %v", ref.StationLines[0].Lines)
	}
}

func TestAlternativesRemovesPrimaryOnce(t *testing.T) {
	ref := &reference.Data{StationLines: []models.StationLines{
		{Station: "X", Lines: []string{"A", "n", "A", "C"}},
	}}
	got := Alternatives(ref, "X", "A")
	expected := []string{"Take n Train instead", "Take A Train instead", "Take C Train instead"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if got := Alternatives(ref, "Y", "A"); len(got) != 0 {
		t.Errorf("Unknown station should give no alternatives, got %v", got)
	}
	for _, a := range Alternatives(ref, "x", "A") {
		if !strings.HasPrefix(a, "Take ") {
			t.Errorf("Unexpected alternative %q", a)
		}
	}
}
