package maintenance

import (
	"context"
	"fmt"

	"github.com/classcommute/internal/common/db"
	"github.com/classcommute/internal/common/logger"
)

// Cleanup statuses
const (
	StatusDeleted = "DELETED"
	StatusFailed  = "FAILED"
)

// VersionCleanupResult represents the result of version cleanup
type VersionCleanupResult struct {
	VersionID      int    `json:"version_id"`
	VersionName    string `json:"version_name"`
	RecordsDeleted int64  `json:"records_deleted"`
	CleanupStatus  string `json:"cleanup_status"`
	Error          string `json:"error,omitempty"`
}

// Maintenance handles database cleanup and maintenance operations
type Maintenance struct {
	db     *db.DB
	logger logger.Logger
}

// New creates a new Maintenance instance
func New(database *db.DB, logger logger.Logger) *Maintenance {
	return &Maintenance{
		db:     database,
		logger: logger,
	}
}

// CleanupOldVersions removes inactive reference versions, keeping the active
// version and the keepInactive most recent inactive ones. Each version is
// removed in its own transaction; a failure is recorded and the rest go on.
func (m *Maintenance) CleanupOldVersions(ctx context.Context, keepInactive int) ([]VersionCleanupResult, error) {
	m.logger.Info("Starting cleanup of old reference versions", "keep_inactive_versions", keepInactive)

	stale, err := m.staleVersions(ctx, keepInactive)
	if err != nil {
		return nil, err
	}

	results := make([]VersionCleanupResult, 0, len(stale))
	deleted := 0
	for _, v := range stale {
		result := VersionCleanupResult{VersionID: v.VersionID, VersionName: v.VersionName}

		n, err := m.deleteVersion(ctx, v.VersionID)
		if err != nil {
			result.CleanupStatus = StatusFailed
			result.Error = err.Error()
			m.logger.Error("Failed to clean up version", "version_id", v.VersionID, "error", err)
		} else {
			result.CleanupStatus = StatusDeleted
			result.RecordsDeleted = n
			deleted++
			m.logger.Info("Cleaned up reference version",
				"version_id", v.VersionID,
				"version_name", v.VersionName,
				"records_deleted", n)
		}
		results = append(results, result)
	}

	if deleted > 0 {
		if err := m.Vacuum(ctx); err != nil {
			// cleanup already committed
			m.logger.Warn("Failed to vacuum after cleanup", "error", err)
		}
	}

	return results, nil
}

func (m *Maintenance) staleVersions(ctx context.Context, keepInactive int) ([]db.VersionInfo, error) {
	if keepInactive < 0 {
		keepInactive = 0
	}

	rows, err := m.db.Conn().QueryContext(ctx, `
		SELECT version_id, version_name
		FROM reference_versions
		WHERE is_active = FALSE
		ORDER BY version_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing inactive versions: %w", err)
	}
	defer rows.Close()

	var stale []db.VersionInfo
	seen := 0
	for rows.Next() {
		var v db.VersionInfo
		if err := rows.Scan(&v.VersionID, &v.VersionName); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		seen++
		if seen > keepInactive {
			stale = append(stale, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}
	return stale, nil
}

func (m *Maintenance) deleteVersion(ctx context.Context, versionID int) (int64, error) {
	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, table := range db.VersionedTables {
		res, err := tx.ExecContext(ctx, m.db.Rebind("DELETE FROM "+table+" WHERE version_id = ?"), versionID)
		if err != nil {
			return 0, fmt.Errorf("deleting from %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("getting rows affected: %w", err)
		}
		total += n
	}

	if _, err := tx.ExecContext(ctx, m.db.Rebind("DELETE FROM reference_versions WHERE version_id = ? AND is_active = FALSE"), versionID); err != nil {
		return 0, fmt.Errorf("deleting version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return total, nil
}

// Vacuum reclaims space after deletes. It must run outside a transaction.
func (m *Maintenance) Vacuum(ctx context.Context) error {
	stmt := "VACUUM"
	if m.db.Driver() == db.DriverPostgres {
		stmt = "VACUUM ANALYZE"
	}

	if _, err := m.db.Conn().ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("executing %s: %w", stmt, err)
	}
	m.logger.Debug("Vacuum completed", "statement", stmt)
	return nil
}
