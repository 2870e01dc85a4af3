package roster

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/khrees2412/rosterctl/internal/api"
	"github.com/khrees2412/rosterctl/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// AcceptedExtensions lists the spreadsheet formats the import endpoint takes
var AcceptedExtensions = []string{".csv", ".xlsx", ".xls"}

// File is a roster file picked by the user
type File struct {
	Name string
	Body io.Reader
}

// ValidateFileName checks the extension against AcceptedExtensions, ignoring case
func ValidateFileName(name string) error {
	ext := cases.Fold().String(filepath.Ext(name))
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			return nil
		}
	}
	return ErrUnsupportedFile
}

// SelectFile records the file chosen in the file input
func (v *View) SelectFile(name string) {
	v.mu.Lock()
	v.selectedFile = name
	v.mu.Unlock()
}

// SelectedFile returns the file input's current value
func (v *View) SelectedFile() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selectedFile
}

// Upload validates and submits a roster file. When the server reports
// duplicates the dialog opens and no refresh happens until they are
// resolved; otherwise the roster is refreshed once. The file input is reset
// once the call settles.
func (v *View) Upload(ctx context.Context, file File) error {
	if err := ValidateFileName(file.Name); err != nil {
		v.setStatus(StatusError, "Please select a CSV or Excel file (.csv, .xlsx, .xls)")
		v.SelectFile("")
		v.record(ctx, &models.ImportRecord{FileName: file.Name, Outcome: models.OutcomeRejected, Message: err.Error()})
		return err
	}
	if !v.begin(opUpload) {
		return ErrBusy
	}
	defer v.end(opUpload)
	defer v.SelectFile("")

	result, err := v.api.UploadRoster(ctx, filepath.Base(file.Name), file.Body)
	if err != nil {
		msg := api.Message(err)
		v.setStatus(StatusError, msg)
		v.record(ctx, &models.ImportRecord{FileName: file.Name, Outcome: models.OutcomeFailed, Message: msg})
		return err
	}

	rec := &models.ImportRecord{
		FileName:       file.Name,
		CreatedCount:   len(result.Success),
		ErrorCount:     len(result.Errors),
		DuplicateCount: len(result.Duplicates),
	}

	if result.HasDuplicates() {
		dialog := newDialog(result.Duplicates, v.defaultAction)
		rec.Outcome = models.OutcomeNeedsReview
		rec.Message = fmt.Sprintf("%d rows need review", len(result.Duplicates))
		importID := v.record(ctx, rec)

		v.mu.Lock()
		v.dialog = dialog
		v.lastImportID = importID
		v.status = Status{Kind: StatusInfo, Message: fmt.Sprintf(
			"Imported %d candidates with %d errors. %d possible duplicates need review.",
			len(result.Success), len(result.Errors), len(result.Duplicates))}
		v.mu.Unlock()
		return nil
	}

	rec.Outcome = models.OutcomeImported
	rec.Message = uploadSummary(result)
	v.record(ctx, rec)
	v.setStatus(StatusInfo, rec.Message)
	v.Refresh(ctx)
	return nil
}

// UploadPath opens the file at path and uploads it. An unsupported extension
// is rejected before the file is opened.
func (v *View) UploadPath(ctx context.Context, path string) error {
	if err := ValidateFileName(path); err != nil {
		return v.Upload(ctx, File{Name: path})
	}
	f, err := os.Open(path)
	if err != nil {
		v.setStatus(StatusError, fmt.Sprintf("Cannot open %s", filepath.Base(path)))
		v.SelectFile("")
		return fmt.Errorf("open roster file: %w", err)
	}
	defer f.Close()
	return v.Upload(ctx, File{Name: path, Body: f})
}

func uploadSummary(result *models.UploadResult) string {
	return fmt.Sprintf("Imported %d candidates with %d errors.", len(result.Success), len(result.Errors))
}

// record writes rec to the history and returns its id when one was assigned
func (v *View) record(ctx context.Context, rec *models.ImportRecord) *int {
	if v.recorder == nil {
		return nil
	}
	if err := v.recorder.RecordImport(ctx, rec); err != nil {
		v.logger.Warn("failed to record import", zap.String("file", rec.FileName), zap.Error(err))
		return nil
	}
	id := rec.ID
	return &id
}
