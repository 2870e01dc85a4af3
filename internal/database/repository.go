package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/khrees2412/rosterctl/pkg/models"
)

// Store records upload and resolution history
type Store struct {
	DB *sql.DB
}

// NewStore wraps an open database
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Import operations

func (s *Store) RecordImport(ctx context.Context, rec *models.ImportRecord) error {
	query := `INSERT INTO imports (file_name, outcome, created_count, error_count, duplicate_count, message)
			  VALUES (?, ?, ?, ?, ?, ?)`
	result, err := s.DB.ExecContext(ctx, query, rec.FileName, rec.Outcome, rec.CreatedCount,
		rec.ErrorCount, rec.DuplicateCount, rec.Message)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	rec.ID = int(id)
	return nil
}

func (s *Store) GetImport(ctx context.Context, id int) (*models.ImportRecord, error) {
	query := `SELECT id, file_name, outcome, created_count, error_count, duplicate_count,
			  COALESCE(message, ''), uploaded_at FROM imports WHERE id=?`
	rec := &models.ImportRecord{}
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.FileName, &rec.Outcome,
		&rec.CreatedCount, &rec.ErrorCount, &rec.DuplicateCount, &rec.Message, &rec.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// ListImports returns the most recent imports first. limit <= 0 returns all.
func (s *Store) ListImports(ctx context.Context, limit int) ([]*models.ImportRecord, error) {
	query := `SELECT id, file_name, outcome, created_count, error_count, duplicate_count,
			  COALESCE(message, ''), uploaded_at FROM imports ORDER BY uploaded_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.ImportRecord{}
	for rows.Next() {
		rec := &models.ImportRecord{}
		err := rows.Scan(&rec.ID, &rec.FileName, &rec.Outcome, &rec.CreatedCount,
			&rec.ErrorCount, &rec.DuplicateCount, &rec.Message, &rec.UploadedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Resolution operations

func (s *Store) RecordResolution(ctx context.Context, rec *models.ResolutionRecord) error {
	query := `INSERT INTO resolutions (import_id, updated, skipped, success_count, error_count, outcome, message)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	var importID sql.NullInt64
	if rec.ImportID != nil {
		importID = sql.NullInt64{Int64: int64(*rec.ImportID), Valid: true}
	}
	result, err := s.DB.ExecContext(ctx, query, importID, rec.Updated, rec.Skipped,
		rec.SuccessCount, rec.ErrorCount, rec.Outcome, rec.Message)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	rec.ID = int(id)
	return nil
}

func (s *Store) GetResolutionsByImportID(ctx context.Context, importID int) ([]*models.ResolutionRecord, error) {
	query := `SELECT id, import_id, updated, skipped, success_count, error_count, outcome,
			  COALESCE(message, ''), resolved_at FROM resolutions WHERE import_id=? ORDER BY resolved_at, id`
	rows, err := s.DB.QueryContext(ctx, query, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.ResolutionRecord{}
	for rows.Next() {
		rec := &models.ResolutionRecord{}
		var id sql.NullInt64
		err := rows.Scan(&rec.ID, &id, &rec.Updated, &rec.Skipped, &rec.SuccessCount,
			&rec.ErrorCount, &rec.Outcome, &rec.Message, &rec.ResolvedAt)
		if err != nil {
			return nil, err
		}
		if id.Valid {
			v := int(id.Int64)
			rec.ImportID = &v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats aggregates the whole history
type Stats struct {
	Uploads          int
	Imported         int
	NeedsReview      int
	Failed           int
	Rejected         int
	Created          int
	RowErrors        int
	Duplicates       int
	Resolutions      int
	Updated          int
	Skipped          int
	LastUploadAt     *time.Time
	OutcomeBreakdown map[string]int
}

func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{OutcomeBreakdown: make(map[string]int)}

	rows, err := s.DB.QueryContext(ctx, `SELECT outcome, COUNT(*), COALESCE(SUM(created_count), 0),
		COALESCE(SUM(error_count), 0), COALESCE(SUM(duplicate_count), 0) FROM imports GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var count, created, rowErrors, dups int
		if err := rows.Scan(&outcome, &count, &created, &rowErrors, &dups); err != nil {
			return nil, err
		}
		stats.OutcomeBreakdown[outcome] = count
		stats.Uploads += count
		stats.Created += created
		stats.RowErrors += rowErrors
		stats.Duplicates += dups
		switch outcome {
		case models.OutcomeImported:
			stats.Imported = count
		case models.OutcomeNeedsReview:
			stats.NeedsReview = count
		case models.OutcomeFailed:
			stats.Failed = count
		case models.OutcomeRejected:
			stats.Rejected = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.DB.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(updated), 0), COALESCE(SUM(skipped), 0)
		FROM resolutions WHERE outcome = 'resolved'`).Scan(&stats.Resolutions, &stats.Updated, &stats.Skipped)
	if err != nil {
		return nil, err
	}

	var last time.Time
	err = s.DB.QueryRowContext(ctx, `SELECT uploaded_at FROM imports ORDER BY uploaded_at DESC, id DESC LIMIT 1`).Scan(&last)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, err
	default:
		stats.LastUploadAt = &last
	}
	return stats, nil
}
