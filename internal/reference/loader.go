package reference

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/pkg/commute/models"
)

// File names inside the data directory.
const (
	StationsFile     = "stations.json"
	TravelTimesFile  = "travel_times.json"
	AlertsFile       = "alerts.json"
	StationLinesFile = "station_to_lines.json"
)

// Loader reads the reference tables from a directory. A table that cannot be
// read or parsed is logged and left empty; loading always continues.
type Loader struct {
	dir    string
	parser *Parser
	logger logger.Logger
}

func NewLoader(dir string, logger logger.Logger) *Loader {
	return &Loader{dir: dir, parser: NewParser(logger), logger: logger}
}

// Load reads all four tables.
func (l *Loader) Load() *Data {
	return &Data{
		Stations:     l.LoadStations(),
		TravelTimes:  l.LoadTravelTimes(),
		Alerts:       l.LoadAlerts(),
		StationLines: l.LoadStationLines(),
	}
}

func (l *Loader) LoadStations() []models.Station {
	var out []models.Station
	l.loadTable(StationsFile, func(data []byte) error {
		return l.parser.ParseStations(bytes.NewReader(data), ParseCallbacks{
			OnStation: func(st *models.Station) error {
				out = append(out, *st)
				return nil
			},
		})
	}, func() { out = nil }, func() int { return len(out) })
	return out
}

func (l *Loader) LoadTravelTimes() []models.TravelTime {
	var out []models.TravelTime
	l.loadTable(TravelTimesFile, func(data []byte) error {
		return l.parser.ParseTravelTimes(bytes.NewReader(data), ParseCallbacks{
			OnTravelTime: func(tt *models.TravelTime) error {
				out = append(out, *tt)
				return nil
			},
		})
	}, func() { out = nil }, func() int { return len(out) })
	return out
}

func (l *Loader) LoadAlerts() []models.ServiceAlert {
	var out []models.ServiceAlert
	l.loadTable(AlertsFile, func(data []byte) error {
		return l.parser.ParseAlerts(bytes.NewReader(data), ParseCallbacks{
			OnAlert: func(a *models.ServiceAlert) error {
				out = append(out, *a)
				return nil
			},
		})
	}, func() { out = nil }, func() int { return len(out) })
	return out
}

func (l *Loader) LoadStationLines() []models.StationLines {
	var out []models.StationLines
	l.loadTable(StationLinesFile, func(data []byte) error {
		return l.parser.ParseStationLines(bytes.NewReader(data), ParseCallbacks{
			OnStationLines: func(sl *models.StationLines) error {
				out = append(out, *sl)
				return nil
			},
		})
	}, func() { out = nil }, func() int { return len(out) })
	return out
}

// loadTable reads name and hands it to parse. On any failure reset drops
// whatever was collected so the table ends up empty.
func (l *Loader) loadTable(name string, parse func([]byte) error, reset func(), count func() int) {
	path := filepath.Join(l.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("Could not open reference file", "file", name, "path", path, "error", err)
		return
	}

	if err := parse(data); err != nil {
		reset()
		l.logger.Warn("Reference file has an unexpected shape", "file", name, "error", err)
		return
	}

	l.logger.Info("Loaded reference table", "file", name, "entries", count())
}
