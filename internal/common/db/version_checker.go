package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoActiveVersion means nothing has been imported yet.
var ErrNoActiveVersion = errors.New("no active reference data version")

// VersionedTables hold rows keyed by reference_versions.version_id.
var VersionedTables = []string{
	"stations",
	"travel_times",
	"service_alerts",
	"station_lines",
	"students",
	"student_classes",
}

// VersionInfo describes one import of the reference tables.
type VersionInfo struct {
	VersionID   int
	VersionName string
	Source      string
	CreatedAt   time.Time
	IsActive    bool
	Description string
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type VersionChecker struct {
	db *DB
}

func NewVersionChecker(db *DB) *VersionChecker {
	return &VersionChecker{db: db}
}

func (vc *VersionChecker) GetActiveVersion(ctx context.Context) (*VersionInfo, error) {
	query := `
		SELECT version_id, version_name, source, created_at, is_active, description
		FROM reference_versions
		WHERE is_active = TRUE
		ORDER BY version_id DESC
		LIMIT 1
	`

	var version VersionInfo
	var createdAt string
	err := vc.db.conn.QueryRowContext(ctx, query).Scan(
		&version.VersionID,
		&version.VersionName,
		&version.Source,
		&createdAt,
		&version.IsActive,
		&version.Description,
	)

	if errors.Is(err, sql.ErrNoRows) {
		vc.db.logger.Info("No active reference version found in database")
		return nil, ErrNoActiveVersion
	}

	if err != nil {
		return nil, fmt.Errorf("querying active version: %w", err)
	}

	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		version.CreatedAt = t
	}

	vc.db.logger.Debug("Found active version",
		"version_id", version.VersionID,
		"version_name", version.VersionName,
		"created_at", version.CreatedAt)

	return &version, nil
}

// CreateVersion records a new, inactive version inside tx.
func (vc *VersionChecker) CreateVersion(ctx context.Context, tx Execer, versionName, source string, createdAt time.Time) (int, error) {
	query := vc.db.Rebind(`
		INSERT INTO reference_versions (version_name, source, created_at, is_active, description)
		VALUES (?, ?, ?, FALSE, ?)
		RETURNING version_id
	`)

	description := fmt.Sprintf("Reference data imported from %s at %s", source, createdAt.Format(time.RFC3339))

	var versionID int
	err := tx.QueryRowContext(ctx, query, versionName, source, createdAt.UTC().Format(time.RFC3339), description).Scan(&versionID)
	if err != nil {
		return 0, fmt.Errorf("creating version: %w", err)
	}

	vc.db.logger.Info("Created new version",
		"version_id", versionID,
		"version_name", versionName)

	return versionID, nil
}

// ActivateVersion makes versionID the only active version.
func (vc *VersionChecker) ActivateVersion(ctx context.Context, tx Execer, versionID int) error {
	if _, err := tx.ExecContext(ctx, "UPDATE reference_versions SET is_active = FALSE WHERE is_active = TRUE"); err != nil {
		return fmt.Errorf("deactivating versions: %w", err)
	}

	result, err := tx.ExecContext(ctx, vc.db.Rebind("UPDATE reference_versions SET is_active = TRUE WHERE version_id = ?"), versionID)
	if err != nil {
		return fmt.Errorf("activating version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("version %d not found", versionID)
	}

	vc.db.logger.Info("Activated version", "version_id", versionID)
	return nil
}
