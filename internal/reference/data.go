package reference

import (
	"strings"

	"github.com/classcommute/pkg/commute/models"
)

// Data holds the reference tables in load order. Lookups scan linearly and
// the first match wins, so duplicate keys keep the first-loaded entry.
type Data struct {
	Stations     []models.Station
	TravelTimes  []models.TravelTime
	Alerts       []models.ServiceAlert
	StationLines []models.StationLines
}

// PrimaryLine returns the upper-cased first line of the first station named
// exactly station. It misses when the station is unknown or lists no lines.
func (d *Data) PrimaryLine(station string) (string, bool) {
	for _, st := range d.Stations {
		if st.Name != station {
			continue
		}
		if len(st.Lines) == 0 {
			return "", false
		}
		line := strings.ToUpper(strings.TrimSpace(st.Lines[0]))
		return line, line != ""
	}
	return "", false
}

func (d *Data) TravelMinutes(station, line string) (int, bool) {
	for _, tt := range d.TravelTimes {
		if tt.Station == station && tt.Line == line {
			return tt.Minutes, true
		}
	}
	return 0, false
}

func (d *Data) ServiceStatus(line string) (string, bool) {
	for _, a := range d.Alerts {
		if a.Line == line {
			return a.Status, true
		}
	}
	return "", false
}

// LinesServing matches the station name case-insensitively. The returned
// slice is a copy.
func (d *Data) LinesServing(station string) ([]string, bool) {
	for _, sl := range d.StationLines {
		if strings.EqualFold(sl.Station, station) {
			return append([]string(nil), sl.Lines...), true
		}
	}
	return nil, false
}

func (d *Data) StationNames() []string {
	names := make([]string, 0, len(d.Stations))
	for _, st := range d.Stations {
		names = append(names, st.Name)
	}
	return names
}

// SuggestStations returns station names containing query, ignoring case, in
// load order. limit <= 0 means no limit.
func (d *Data) SuggestStations(query string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []string
	for _, st := range d.Stations {
		if q != "" && !strings.Contains(strings.ToLower(st.Name), q) {
			continue
		}
		out = append(out, st.Name)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// HasStation reports whether station is known by its exact name.
func (d *Data) HasStation(station string) bool {
	for _, st := range d.Stations {
		if st.Name == station {
			return true
		}
	}
	return false
}
