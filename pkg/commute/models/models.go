package models

// GoodService is the status a line reports when it runs without degradation.
const GoodService = "GOOD SERVICE"

// ClassSeparator joins a class name and its time range in the display text
// offered to the student ("Algorithms – 10:00 AM - 11:40 AM").
const ClassSeparator = " – "

// Station is an entry of stations.json. The first line is the primary line.
type Station struct {
	Name  string   `json:"Station Name"`
	Lines []string `json:"Train Lines"`
}

// TravelTime is one (station, line) entry of travel_times.json.
type TravelTime struct {
	Station string
	Line    string
	Minutes int
}

// ServiceAlert is one line entry of alerts.json.
type ServiceAlert struct {
	Line   string
	Status string
}

// StationLines lists every line serving a station (station_to_lines.json).
type StationLines struct {
	Station string
	Lines   []string
}

type Student struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	ID      string      `json:"cuny_id"`
	Classes []ClassInfo `json:"classes"`
}

type ClassInfo struct {
	Name           string `json:"class_name"`
	Time           string `json:"class_time"` // free text, e.g. "10:00 AM - 11:40 AM"
	Professor      string `json:"professor"`
	ProfessorEmail string `json:"prof_email"`
}

// DisplayText is the label a student picks the class by.
func (c ClassInfo) DisplayText() string {
	return c.Name + ClassSeparator + c.Time
}
