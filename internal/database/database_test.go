package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/khrees2412/rosterctl/pkg/models"
	_ "github.com/mattn/go-sqlite3"
)

// createTestDB creates a temporary test database
func createTestDB(t *testing.T) *sql.DB {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newTestStore(t *testing.T) *Store {
	return NewStore(createTestDB(t))
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	// migrations are idempotent
	if err := RunMigrations(db); err != nil {
		t.Errorf("second migration failed: %v", err)
	}
}

func TestRecordImport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &models.ImportRecord{
		FileName:     "roster.csv",
		Outcome:      models.OutcomeImported,
		CreatedCount: 12,
		ErrorCount:   1,
		Message:      "Imported 12 candidates with 1 errors.",
	}
	if err := store.RecordImport(ctx, rec); err != nil {
		t.Fatalf("RecordImport failed: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected import ID to be set")
	}

	got, err := store.GetImport(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetImport failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected import, got nil")
	}
	if got.FileName != "roster.csv" || got.CreatedCount != 12 || got.ErrorCount != 1 {
		t.Errorf("unexpected import: %+v", got)
	}
	if got.UploadedAt.IsZero() {
		t.Error("expected uploaded_at to be populated")
	}
}

func TestGetImportMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetImport(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetImport failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing import, got %+v", got)
	}
}

func TestRecordImportRejectsUnknownOutcome(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordImport(context.Background(), &models.ImportRecord{FileName: "x.csv", Outcome: "maybe"})
	if err == nil {
		t.Error("expected check constraint violation for unknown outcome")
	}
}

func TestListImports(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	names := []string{"first.csv", "second.xlsx", "third.xls"}
	for _, name := range names {
		if err := store.RecordImport(ctx, &models.ImportRecord{FileName: name, Outcome: models.OutcomeImported}); err != nil {
			t.Fatalf("RecordImport(%s) failed: %v", name, err)
		}
	}

	all, err := store.ListImports(ctx, 0)
	if err != nil {
		t.Fatalf("ListImports failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 imports, got %d", len(all))
	}
	// newest first
	if all[0].FileName != "third.xls" || all[2].FileName != "first.csv" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].FileName, all[1].FileName, all[2].FileName)
	}

	limited, err := store.ListImports(ctx, 2)
	if err != nil {
		t.Fatalf("ListImports with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 imports, got %d", len(limited))
	}
}

func TestRecordResolution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	imp := &models.ImportRecord{FileName: "roster.csv", Outcome: models.OutcomeNeedsReview, DuplicateCount: 3}
	if err := store.RecordImport(ctx, imp); err != nil {
		t.Fatalf("RecordImport failed: %v", err)
	}

	tests := []struct {
		name string
		rec  *models.ResolutionRecord
	}{
		{
			name: "linked to import",
			rec:  &models.ResolutionRecord{ImportID: &imp.ID, Updated: 2, Skipped: 1, SuccessCount: 2, Outcome: models.OutcomeResolved},
		},
		{
			name: "without import",
			rec:  &models.ResolutionRecord{Updated: 1, Outcome: models.OutcomeFailed, Message: "Failed to resolve duplicates"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.RecordResolution(ctx, tt.rec); err != nil {
				t.Fatalf("RecordResolution failed: %v", err)
			}
			if tt.rec.ID == 0 {
				t.Error("expected resolution ID to be set")
			}
		})
	}

	linked, err := store.GetResolutionsByImportID(ctx, imp.ID)
	if err != nil {
		t.Fatalf("GetResolutionsByImportID failed: %v", err)
	}
	if len(linked) != 1 {
		t.Fatalf("expected 1 linked resolution, got %d", len(linked))
	}
	if linked[0].ImportID == nil || *linked[0].ImportID != imp.ID {
		t.Errorf("expected import ID %d, got %v", imp.ID, linked[0].ImportID)
	}
	if linked[0].Updated != 2 || linked[0].Skipped != 1 {
		t.Errorf("unexpected counts: %+v", linked[0])
	}
}

func TestDeletingImportDetachesResolutions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	imp := &models.ImportRecord{FileName: "roster.csv", Outcome: models.OutcomeNeedsReview}
	if err := store.RecordImport(ctx, imp); err != nil {
		t.Fatalf("RecordImport failed: %v", err)
	}
	res := &models.ResolutionRecord{ImportID: &imp.ID, Outcome: models.OutcomeResolved}
	if err := store.RecordResolution(ctx, res); err != nil {
		t.Fatalf("RecordResolution failed: %v", err)
	}

	if _, err := store.DB.Exec("DELETE FROM imports WHERE id = ?", imp.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var importID sql.NullInt64
	if err := store.DB.QueryRow("SELECT import_id FROM resolutions WHERE id = ?", res.ID).Scan(&importID); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if importID.Valid {
		t.Errorf("expected import_id to be NULL after delete, got %d", importID.Int64)
	}
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats on empty store failed: %v", err)
	}
	if empty.Uploads != 0 || empty.LastUploadAt != nil {
		t.Errorf("expected empty stats, got %+v", empty)
	}

	imports := []*models.ImportRecord{
		{FileName: "a.csv", Outcome: models.OutcomeImported, CreatedCount: 5, ErrorCount: 1},
		{FileName: "b.csv", Outcome: models.OutcomeImported, CreatedCount: 3},
		{FileName: "c.xlsx", Outcome: models.OutcomeNeedsReview, CreatedCount: 2, DuplicateCount: 4},
		{FileName: "d.csv", Outcome: models.OutcomeFailed},
		{FileName: "e.txt", Outcome: models.OutcomeRejected},
	}
	for _, rec := range imports {
		if err := store.RecordImport(ctx, rec); err != nil {
			t.Fatalf("RecordImport failed: %v", err)
		}
	}
	resolutions := []*models.ResolutionRecord{
		{ImportID: &imports[2].ID, Updated: 3, Skipped: 1, Outcome: models.OutcomeResolved},
		{ImportID: &imports[2].ID, Updated: 4, Outcome: models.OutcomeFailed},
	}
	for _, rec := range resolutions {
		if err := store.RecordResolution(ctx, rec); err != nil {
			t.Fatalf("RecordResolution failed: %v", err)
		}
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.Uploads != 5 {
		t.Errorf("expected 5 uploads, got %d", stats.Uploads)
	}
	if stats.Imported != 2 || stats.NeedsReview != 1 || stats.Failed != 1 || stats.Rejected != 1 {
		t.Errorf("unexpected outcome counts: %+v", stats)
	}
	if stats.Created != 10 || stats.RowErrors != 1 || stats.Duplicates != 4 {
		t.Errorf("unexpected row totals: created=%d errors=%d duplicates=%d", stats.Created, stats.RowErrors, stats.Duplicates)
	}
	// failed resolutions are not counted
	if stats.Resolutions != 1 || stats.Updated != 3 || stats.Skipped != 1 {
		t.Errorf("unexpected resolution totals: %+v", stats)
	}
	if stats.OutcomeBreakdown[models.OutcomeImported] != 2 {
		t.Errorf("expected breakdown imported=2, got %d", stats.OutcomeBreakdown[models.OutcomeImported])
	}
	if stats.LastUploadAt == nil {
		t.Error("expected last upload time")
	}
}
