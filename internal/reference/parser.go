package reference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/pkg/commute/models"
)

// ErrNotObject is returned when a table's root is not a JSON object.
var ErrNotObject = errors.New("root is not a JSON object")

// Parser decodes the four reference tables. The decoding is lenient: wrongly
// typed values fall back to zero values instead of failing the table.
type Parser struct {
	logger logger.Logger
}

func NewParser(logger logger.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseCallbacks receive entries in document order.
type ParseCallbacks struct {
	OnStation      func(station *models.Station) error
	OnTravelTime   func(tt *models.TravelTime) error
	OnAlert        func(alert *models.ServiceAlert) error
	OnStationLines func(sl *models.StationLines) error
}

// ParseStations reads {"stations": [{"Station Name": ..., "Train Lines": [...]}]}.
func (p *Parser) ParseStations(r io.Reader, cb ParseCallbacks) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading stations: %w", err)
	}

	var stationsRaw json.RawMessage
	err = walkObject(data, func(key string, value json.RawMessage) error {
		if key == "stations" && stationsRaw == nil {
			stationsRaw = value
		}
		return nil
	})
	if err != nil {
		return err
	}

	var items []json.RawMessage
	if len(stationsRaw) > 0 {
		// a non-array value reads as an empty list
		if err := json.Unmarshal(stationsRaw, &items); err != nil {
			p.logger.Debug("stations value is not an array", "error", err)
			items = nil
		}
	}

	for _, item := range items {
		var obj map[string]interface{}
		_ = json.Unmarshal(item, &obj)

		st := &models.Station{
			Name:  asString(obj["Station Name"]),
			Lines: asStrings(obj["Train Lines"]),
		}
		if cb.OnStation != nil {
			if err := cb.OnStation(st); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseTravelTimes reads {"<station>": {"<line>": minutes}}.
func (p *Parser) ParseTravelTimes(r io.Reader, cb ParseCallbacks) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading travel times: %w", err)
	}

	return walkObject(data, func(station string, value json.RawMessage) error {
		err := walkObject(value, func(line string, minutes json.RawMessage) error {
			var v interface{}
			_ = json.Unmarshal(minutes, &v)
			tt := &models.TravelTime{Station: station, Line: line, Minutes: asInt(v)}
			if cb.OnTravelTime != nil {
				return cb.OnTravelTime(tt)
			}
			return nil
		})
		if errors.Is(err, ErrNotObject) {
			p.logger.Debug("Travel time entry is not an object", "station", station)
			return nil
		}
		return err
	})
}

// ParseAlerts reads {"<line>": "<status>"}.
func (p *Parser) ParseAlerts(r io.Reader, cb ParseCallbacks) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading alerts: %w", err)
	}

	return walkObject(data, func(line string, value json.RawMessage) error {
		var v interface{}
		_ = json.Unmarshal(value, &v)
		alert := &models.ServiceAlert{Line: line, Status: asString(v)}
		if cb.OnAlert != nil {
			return cb.OnAlert(alert)
		}
		return nil
	})
}

// ParseStationLines reads {"<station>": ["<line>", ...]}.
func (p *Parser) ParseStationLines(r io.Reader, cb ParseCallbacks) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading station lines: %w", err)
	}

	return walkObject(data, func(station string, value json.RawMessage) error {
		var v interface{}
		_ = json.Unmarshal(value, &v)
		sl := &models.StationLines{Station: station, Lines: asStrings(v)}
		if cb.OnStationLines != nil {
			return cb.OnStationLines(sl)
		}
		return nil
	})
}

// walkObject visits the members of a JSON object in document order, keeping
// duplicate keys. encoding/json maps would lose both the order and duplicates.
func walkObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrNotObject
		}
		return fmt.Errorf("decoding JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrNotObject
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decoding value for %q: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	return nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStrings(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, asString(item))
	}
	return out
}

// asInt accepts whole numbers only; anything else reads as 0.
func asInt(v interface{}) int {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}
