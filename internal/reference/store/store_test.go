package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/classcommute/internal/common/db"
	"github.com/classcommute/internal/common/logger"
	"github.com/classcommute/internal/reference"
	"github.com/classcommute/pkg/commute/models"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.New(db.DriverSQLite, ":memory:", logger.Discard())
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database)
}

func sampleData() (*reference.Data, []models.Student) {
	ref := &reference.Data{
		Stations: []models.Station{
			{Name: "Times Sq-42 St", Lines: []string{"N", "Q", "R"}},
			{Name: "Nowhere", Lines: []string{}},
		},
		TravelTimes: []models.TravelTime{
			{Station: "Times Sq-42 St", Line: "N", Minutes: 25},
			{Station: "Times Sq-42 St", Line: "N", Minutes: 99},
		},
		Alerts: []models.ServiceAlert{{Line: "N", Status: "DELAYS"}},
		StationLines: []models.StationLines{
			{Station: "Times Sq-42 St", Lines: []string{"N", "Q", "R", "W"}},
		},
	}
	students := []models.Student{
		{
			Name: "Ana Reyes", Email: "ana@example.edu", ID: "24000001",
			Classes: []models.ClassInfo{
				{Name: "Algorithms", Time: "10:00 AM - 11:40 AM", Professor: "Dr. Park", ProfessorEmail: "park@example.edu"},
				{Name: "Physics", Time: "9:05 AM - 10:10 AM", Professor: "Dr. Ito", ProfessorEmail: "ito@example.edu"},
			},
		},
		{Name: "Ben Cho", Email: "", ID: "24000002", Classes: []models.ClassInfo{}},
	}
	return ref, students
}

func TestImportAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	ref, students := sampleData()

	if _, err := s.Import(ctx, ref, students, "./data"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	loaded, err := s.LoadReference(ctx)
	if err != nil {
		t.Fatalf("LoadReference failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, ref) {
		t.Errorf("Reference data changed on the way through the store:\n got %+v\nwant %+v", loaded, ref)
	}
	if m, _ := loaded.TravelMinutes("Times Sq-42 St", "N"); m != 25 {
		t.Errorf("First-match order lost, got %d", m)
	}

	gotStudents, err := s.LoadStudents(ctx)
	if err != nil {
		t.Fatalf("LoadStudents failed: %v", err)
	}
	if !reflect.DeepEqual(gotStudents, students) {
		t.Errorf("Roster changed on the way through the store:\n got %+v\nwant %+v", gotStudents, students)
	}
}

func TestReimportReplacesActiveVersion(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	ref, students := sampleData()

	first, err := s.Import(ctx, ref, students, "./data")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	ref.Alerts = nil
	second, err := s.Import(ctx, ref, students[:1], "./data")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if second == first {
		t.Fatal("Expected a new version")
	}

	loaded, err := s.LoadReference(ctx)
	if err != nil {
		t.Fatalf("LoadReference failed: %v", err)
	}
	if len(loaded.Alerts) != 0 {
		t.Errorf("Expected the second import's empty alerts, got %v", loaded.Alerts)
	}
	gotStudents, err := s.LoadStudents(ctx)
	if err != nil {
		t.Fatalf("LoadStudents failed: %v", err)
	}
	if len(gotStudents) != 1 {
		t.Errorf("Expected 1 student, got %d", len(gotStudents))
	}
}

func TestLoadBeforeImport(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if err := s.db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if _, err := s.LoadReference(ctx); !errors.Is(err, db.ErrNoActiveVersion) {
		t.Errorf("Expected ErrNoActiveVersion, got %v", err)
	}
	if _, err := s.LoadStudents(ctx); !errors.Is(err, db.ErrNoActiveVersion) {
		t.Errorf("Expected ErrNoActiveVersion, got %v", err)
	}
}

func TestBatchInserterFlushesInChunks(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	s.batchSize = 2

	ref := &reference.Data{}
	for i := 0; i < 5; i++ {
		ref.Alerts = append(ref.Alerts, models.ServiceAlert{Line: string(rune('A' + i)), Status: "GOOD SERVICE"})
	}

	if _, err := s.Import(ctx, ref, nil, "test"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	loaded, err := s.LoadReference(ctx)
	if err != nil {
		t.Fatalf("LoadReference failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Alerts, ref.Alerts) {
		t.Errorf("Expected %v, got %v", ref.Alerts, loaded.Alerts)
	}
}
