package roster

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/khrees2412/rosterctl/internal/api"
	"github.com/khrees2412/rosterctl/pkg/models"
	"go.uber.org/zap"
)

// Row is one duplicate awaiting a decision. Token identifies the row for the
// lifetime of the dialog regardless of its position.
type Row struct {
	Token     string
	Duplicate models.DuplicateCandidate
}

type choice struct {
	action     models.Action
	existingID models.ID
}

// Dialog collects per-row decisions for the duplicates of one upload
type Dialog struct {
	mu            sync.Mutex
	rows          []Row
	choices       map[string]choice
	defaultAction models.Action
}

func newDialog(duplicates []models.DuplicateCandidate, defaultAction models.Action) *Dialog {
	rows := make([]Row, len(duplicates))
	for i, dup := range duplicates {
		rows[i] = Row{Token: uuid.NewString(), Duplicate: dup}
	}
	return &Dialog{
		rows:          rows,
		choices:       make(map[string]choice),
		defaultAction: defaultAction,
	}
}

// Rows returns the duplicates in the order the server sent them
func (d *Dialog) Rows() []Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Row, len(d.rows))
	copy(out, d.rows)
	return out
}

// Len returns the number of duplicate rows
func (d *Dialog) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

// NeedsSelector reports whether the row has more than one existing match to pick from
func (d *Dialog) NeedsSelector(token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.row(token)
	return ok && len(row.Duplicate.Existing) > 1
}

// Touched reports whether the user made an explicit choice for the row
func (d *Dialog) Touched(token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.choices[token]
	return ok
}

// Choose sets the action for a row. Choosing update keeps a previously
// selected match, otherwise it targets the first match.
func (d *Dialog) Choose(token string, action models.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.row(token)
	if !ok {
		return ErrUnknownRow
	}
	if action != models.ActionUpdate && action != models.ActionSkip {
		return fmt.Errorf("invalid action %q", action)
	}
	c := d.choices[token]
	c.action = action
	if action == models.ActionUpdate && c.existingID.IsZero() {
		id, ok := firstMatch(row)
		if !ok {
			return fmt.Errorf("row %q has no existing match to update", row.Duplicate.New.Email)
		}
		c.existingID = id
	}
	d.choices[token] = c
	return nil
}

// SelectMatch picks which existing record an update targets and sets the
// row's action to update
func (d *Dialog) SelectMatch(token string, existingID models.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.row(token)
	if !ok {
		return ErrUnknownRow
	}
	for _, existing := range row.Duplicate.Existing {
		if existing.ID == existingID {
			d.choices[token] = choice{action: models.ActionUpdate, existingID: existingID}
			return nil
		}
	}
	return ErrUnknownMatch
}

// Decision returns the effective decision for a row, applying the default
// when the user has not touched it. The same value is shown and submitted.
func (d *Dialog) Decision(token string) (models.Decision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.row(token)
	if !ok {
		return models.Decision{}, ErrUnknownRow
	}
	return d.effective(row), nil
}

// Decisions materializes an explicit decision for every row, in the order
// the duplicates were received
func (d *Dialog) Decisions() []models.Decision {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Decision, 0, len(d.rows))
	for _, row := range d.rows {
		out = append(out, d.effective(row))
	}
	return out
}

func (d *Dialog) effective(row Row) models.Decision {
	c, ok := d.choices[row.Token]
	if !ok {
		c = choice{action: d.defaultAction}
	}
	decision := models.Decision{New: row.Duplicate.New, Action: c.action}
	if c.action != models.ActionUpdate {
		decision.Action = models.ActionSkip
		return decision
	}
	id := c.existingID
	if id.IsZero() {
		first, ok := firstMatch(row)
		if !ok {
			// nothing to update
			decision.Action = models.ActionSkip
			return decision
		}
		id = first
	}
	decision.ExistingID = &id
	return decision
}

func (d *Dialog) row(token string) (Row, bool) {
	for _, r := range d.rows {
		if r.Token == token {
			return r, true
		}
	}
	return Row{}, false
}

func firstMatch(row Row) (models.ID, bool) {
	if len(row.Duplicate.Existing) == 0 {
		return models.ID{}, false
	}
	return row.Duplicate.Existing[0].ID, true
}

// Cancel closes the dialog and drops every pending decision
func (v *View) Cancel() {
	v.mu.Lock()
	v.dialog = nil
	v.lastImportID = nil
	v.mu.Unlock()
}

// Resolve submits the dialog's decisions. On success the dialog closes and
// the roster is refreshed; on failure the dialog stays open for a retry.
func (v *View) Resolve(ctx context.Context) error {
	v.mu.Lock()
	dialog := v.dialog
	importID := v.lastImportID
	v.mu.Unlock()
	if dialog == nil {
		return ErrNoDialog
	}
	if !v.begin(opResolve) {
		return ErrBusy
	}
	defer v.end(opResolve)

	decisions := dialog.Decisions()
	rec := &models.ResolutionRecord{ImportID: importID}
	for _, d := range decisions {
		if d.Action == models.ActionUpdate {
			rec.Updated++
		} else {
			rec.Skipped++
		}
	}

	result, err := v.api.ResolveDuplicates(ctx, decisions)
	if err != nil {
		msg := api.Message(err)
		v.setStatus(StatusError, msg)
		rec.Outcome = models.OutcomeFailed
		rec.Message = msg
		v.recordResolution(ctx, rec)
		return err
	}

	rec.Outcome = models.OutcomeResolved
	rec.SuccessCount = len(result.Success)
	rec.ErrorCount = len(result.Errors)
	rec.Message = fmt.Sprintf("Resolved duplicates: %d succeeded, %d errors.", rec.SuccessCount, rec.ErrorCount)
	v.recordResolution(ctx, rec)

	v.mu.Lock()
	if v.dialog == dialog {
		v.dialog = nil
		v.lastImportID = nil
	}
	v.status = Status{Kind: StatusInfo, Message: rec.Message}
	v.mu.Unlock()

	v.Refresh(ctx)
	return nil
}

func (v *View) recordResolution(ctx context.Context, rec *models.ResolutionRecord) {
	if v.recorder == nil {
		return
	}
	if err := v.recorder.RecordResolution(ctx, rec); err != nil {
		v.logger.Warn("failed to record resolution", zap.Error(err))
	}
}
