// Package store keeps the reference tables and the roster in SQL so several
// machines can share one copy. Every row carries the import version and its
// position in the source file; reads return rows in that order, which keeps
// first-match lookups identical to loading the JSON files directly.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classcommute/internal/common/db"
	"github.com/classcommute/internal/reference"
	"github.com/classcommute/pkg/commute/models"
)

type Store struct {
	db        *db.DB
	versions  *db.VersionChecker
	batchSize int
}

func New(database *db.DB) *Store {
	return &Store{
		db:        database,
		versions:  db.NewVersionChecker(database),
		batchSize: 200,
	}
}

// Import writes ref and students as a new version and activates it. Nothing
// becomes visible unless the whole import succeeds.
func (s *Store) Import(ctx context.Context, ref *reference.Data, students []models.Student, source string) (int, error) {
	log := s.db.Logger()

	if err := s.db.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	versionID, err := s.versions.CreateVersion(ctx, tx, "import-"+uuid.NewString(), source, time.Now())
	if err != nil {
		return 0, err
	}

	stationBatch := s.newBatchInserter(ctx, tx, "stations", "version_id", "seq", "name", "lines")
	for i, st := range ref.Stations {
		if err := stationBatch.Add(versionID, i, st.Name, encodeLines(st.Lines)); err != nil {
			return 0, err
		}
	}

	travelBatch := s.newBatchInserter(ctx, tx, "travel_times", "version_id", "seq", "station", "line", "minutes")
	for i, tt := range ref.TravelTimes {
		if err := travelBatch.Add(versionID, i, tt.Station, tt.Line, tt.Minutes); err != nil {
			return 0, err
		}
	}

	alertBatch := s.newBatchInserter(ctx, tx, "service_alerts", "version_id", "seq", "line", "status")
	for i, a := range ref.Alerts {
		if err := alertBatch.Add(versionID, i, a.Line, a.Status); err != nil {
			return 0, err
		}
	}

	linesBatch := s.newBatchInserter(ctx, tx, "station_lines", "version_id", "seq", "station", "lines")
	for i, sl := range ref.StationLines {
		if err := linesBatch.Add(versionID, i, sl.Station, encodeLines(sl.Lines)); err != nil {
			return 0, err
		}
	}

	studentBatch := s.newBatchInserter(ctx, tx, "students", "version_id", "seq", "cuny_id", "name", "email")
	classBatch := s.newBatchInserter(ctx, tx, "student_classes",
		"version_id", "student_seq", "seq", "class_name", "class_time", "professor", "prof_email")
	for i, st := range students {
		if err := studentBatch.Add(versionID, i, st.ID, st.Name, st.Email); err != nil {
			return 0, err
		}
		for j, c := range st.Classes {
			if err := classBatch.Add(versionID, i, j, c.Name, c.Time, c.Professor, c.ProfessorEmail); err != nil {
				return 0, err
			}
		}
	}

	for _, b := range []*batchInserter{stationBatch, travelBatch, alertBatch, linesBatch, studentBatch, classBatch} {
		if err := b.Flush(); err != nil {
			return 0, err
		}
	}

	if err := s.versions.ActivateVersion(ctx, tx, versionID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	log.Info("Imported reference data",
		"version_id", versionID,
		"stations", len(ref.Stations),
		"travel_times", len(ref.TravelTimes),
		"alerts", len(ref.Alerts),
		"station_lines", len(ref.StationLines),
		"students", len(students),
	)
	return versionID, nil
}

// LoadReference reads the active version's reference tables.
func (s *Store) LoadReference(ctx context.Context) (*reference.Data, error) {
	version, err := s.versions.GetActiveVersion(ctx)
	if err != nil {
		return nil, err
	}
	v := version.VersionID
	data := &reference.Data{}

	err = s.query(ctx, "SELECT name, lines FROM stations WHERE version_id = ? ORDER BY seq", v, func(rows *sql.Rows) error {
		var st models.Station
		var lines string
		if err := rows.Scan(&st.Name, &lines); err != nil {
			return err
		}
		st.Lines = decodeLines(lines)
		data.Stations = append(data.Stations, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}

	err = s.query(ctx, "SELECT station, line, minutes FROM travel_times WHERE version_id = ? ORDER BY seq", v, func(rows *sql.Rows) error {
		var tt models.TravelTime
		if err := rows.Scan(&tt.Station, &tt.Line, &tt.Minutes); err != nil {
			return err
		}
		data.TravelTimes = append(data.TravelTimes, tt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading travel times: %w", err)
	}

	err = s.query(ctx, "SELECT line, status FROM service_alerts WHERE version_id = ? ORDER BY seq", v, func(rows *sql.Rows) error {
		var a models.ServiceAlert
		if err := rows.Scan(&a.Line, &a.Status); err != nil {
			return err
		}
		data.Alerts = append(data.Alerts, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading alerts: %w", err)
	}

	err = s.query(ctx, "SELECT station, lines FROM station_lines WHERE version_id = ? ORDER BY seq", v, func(rows *sql.Rows) error {
		var sl models.StationLines
		var lines string
		if err := rows.Scan(&sl.Station, &lines); err != nil {
			return err
		}
		sl.Lines = decodeLines(lines)
		data.StationLines = append(data.StationLines, sl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading station lines: %w", err)
	}

	return data, nil
}

// LoadStudents reads the active version's roster.
func (s *Store) LoadStudents(ctx context.Context) ([]models.Student, error) {
	version, err := s.versions.GetActiveVersion(ctx)
	if err != nil {
		return nil, err
	}
	v := version.VersionID

	var students []models.Student
	err = s.query(ctx, "SELECT cuny_id, name, email FROM students WHERE version_id = ? ORDER BY seq", v, func(rows *sql.Rows) error {
		var st models.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Email); err != nil {
			return err
		}
		st.Classes = []models.ClassInfo{}
		students = append(students, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading students: %w", err)
	}

	err = s.query(ctx, `SELECT student_seq, class_name, class_time, professor, prof_email
		FROM student_classes WHERE version_id = ? ORDER BY student_seq, seq`, v, func(rows *sql.Rows) error {
		var idx int
		var c models.ClassInfo
		if err := rows.Scan(&idx, &c.Name, &c.Time, &c.Professor, &c.ProfessorEmail); err != nil {
			return err
		}
		if idx < 0 || idx >= len(students) {
			return fmt.Errorf("class row for unknown student #%d", idx)
		}
		students[idx].Classes = append(students[idx].Classes, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}

	return students, nil
}

func (s *Store) query(ctx context.Context, query string, versionID int, scan func(*sql.Rows) error) error {
	rows, err := s.db.Conn().QueryContext(ctx, s.db.Rebind(query), versionID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func encodeLines(lines []string) string {
	if lines == nil {
		lines = []string{}
	}
	b, _ := json.Marshal(lines)
	return string(b)
}

func decodeLines(s string) []string {
	var lines []string
	if err := json.Unmarshal([]byte(s), &lines); err != nil {
		return nil
	}
	return lines
}

// batchInserter collects rows and writes them with multi-row INSERTs.
type batchInserter struct {
	ctx       context.Context
	tx        *sql.Tx
	rebind    func(string) string
	tableName string
	columns   []string
	values    []interface{}
	rowCount  int
	batchSize int
}

func (s *Store) newBatchInserter(ctx context.Context, tx *sql.Tx, table string, columns ...string) *batchInserter {
	return &batchInserter{
		ctx:       ctx,
		tx:        tx,
		rebind:    s.db.Rebind,
		tableName: table,
		columns:   columns,
		batchSize: s.batchSize,
	}
}

func (b *batchInserter) Add(values ...interface{}) error {
	if len(values) != len(b.columns) {
		return fmt.Errorf("%s: expected %d values, got %d", b.tableName, len(b.columns), len(values))
	}

	b.values = append(b.values, values...)
	b.rowCount++

	if b.rowCount >= b.batchSize {
		return b.Flush()
	}
	return nil
}

func (b *batchInserter) Flush() error {
	if b.rowCount == 0 {
		return nil
	}

	if _, err := b.tx.ExecContext(b.ctx, b.rebind(b.buildInsertQuery()), b.values...); err != nil {
		return fmt.Errorf("executing batch insert into %s: %w", b.tableName, err)
	}

	// Reset
	b.values = b.values[:0]
	b.rowCount = 0

	return nil
}

func (b *batchInserter) buildInsertQuery() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES ", b.tableName, strings.Join(b.columns, ", ")))

	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(b.columns)), ", ") + ")"
	for i := 0; i < b.rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
	}

	return sb.String()
}
