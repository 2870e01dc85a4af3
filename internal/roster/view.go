// Package roster holds the state of the candidate roster view: the loaded
// candidate list, the upload flow and the duplicate resolution dialog.
//
// A View is owned by exactly one front end (the TUI or a CLI command). It is
// safe to call from multiple goroutines, but each kind of operation runs at
// most once at a time; a second Load, Upload or Resolve started while the
// first is outstanding fails with ErrBusy.
package roster

import (
	"context"
	"io"
	"sync"

	"github.com/khrees2412/rosterctl/internal/api"
	"github.com/khrees2412/rosterctl/pkg/models"
	"go.uber.org/zap"
)

// API is the subset of the remote roster API the view depends on
type API interface {
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	UploadRoster(ctx context.Context, fileName string, body io.Reader) (*models.UploadResult, error)
	ResolveDuplicates(ctx context.Context, decisions []models.Decision) (*models.ResolveResult, error)
}

// Recorder persists upload and resolution outcomes. Failures are logged only.
type Recorder interface {
	RecordImport(ctx context.Context, rec *models.ImportRecord) error
	RecordResolution(ctx context.Context, rec *models.ResolutionRecord) error
}

// StatusKind distinguishes informational banners from errors
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusInfo
	StatusError
)

// Status is the dismissible banner shown above the table
type Status struct {
	Kind    StatusKind
	Message string
}

// operation identifies a busy-guarded action
type operation int

const (
	opLoad operation = iota
	opUpload
	opResolve
)

// View is the state container for one roster screen
type View struct {
	api      API
	recorder Recorder
	logger   *zap.Logger

	defaultAction models.Action

	mu           sync.Mutex
	candidates   []models.Candidate
	loaded       bool
	loadErr      string
	status       Status
	selectedFile string
	busy         map[operation]bool
	dialog       *Dialog
	lastImportID *int
}

// Option configures a View
type Option func(*View)

// WithLogger sets the logger used for non-blocking failures
func WithLogger(logger *zap.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithRecorder enables the local import history
func WithRecorder(r Recorder) Option {
	return func(v *View) {
		v.recorder = r
	}
}

// WithDefaultAction sets the decision applied to untouched duplicate rows
func WithDefaultAction(action models.Action) Option {
	return func(v *View) {
		if action == models.ActionUpdate || action == models.ActionSkip {
			v.defaultAction = action
		}
	}
}

// New returns a view backed by api
func New(api API, opts ...Option) *View {
	v := &View{
		api:           api,
		logger:        zap.NewNop(),
		defaultAction: models.ActionUpdate,
		busy:          make(map[operation]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load fetches the candidate list. On failure the view enters the error
// state with an empty list; the caller offers a reload.
func (v *View) Load(ctx context.Context) error {
	if !v.begin(opLoad) {
		return ErrBusy
	}
	defer v.end(opLoad)

	candidates, err := v.api.ListCandidates(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loaded = true
	if err != nil {
		v.candidates = []models.Candidate{}
		v.loadErr = api.Message(err)
		v.logger.Warn("initial load failed", zap.Error(err))
		return err
	}
	v.candidates = candidates
	v.loadErr = ""
	return nil
}

// Refresh re-fetches the candidate list after a mutation. Failures are logged
// and the current contents are left as they are.
func (v *View) Refresh(ctx context.Context) {
	candidates, err := v.api.ListCandidates(ctx)
	if err != nil {
		v.logger.Warn("refresh failed, keeping stale roster", zap.Error(err))
		return
	}
	v.mu.Lock()
	v.candidates = candidates
	v.loadErr = ""
	v.loaded = true
	v.mu.Unlock()
}

// Candidates returns a copy of the loaded list
func (v *View) Candidates() []models.Candidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Candidate, len(v.candidates))
	copy(out, v.candidates)
	return out
}

// Loaded reports whether a Load has settled
func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// LoadError returns the initial-load failure message, or "" when the table can be shown
func (v *View) LoadError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

// Status returns the current banner
func (v *View) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// DismissStatus clears the banner
func (v *View) DismissStatus() {
	v.mu.Lock()
	v.status = Status{}
	v.mu.Unlock()
}

// Busy reports whether any operation is in flight
func (v *View) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, b := range v.busy {
		if b {
			return true
		}
	}
	return false
}

// Uploading reports whether an upload is in flight
func (v *View) Uploading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy[opUpload]
}

// Resolving reports whether a resolution is in flight
func (v *View) Resolving() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy[opResolve]
}

// Dialog returns the open duplicate dialog, or nil
func (v *View) Dialog() *Dialog {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dialog
}

func (v *View) begin(op operation) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.busy[op] {
		return false
	}
	v.busy[op] = true
	return true
}

func (v *View) end(op operation) {
	v.mu.Lock()
	v.busy[op] = false
	v.mu.Unlock()
}

func (v *View) setStatus(kind StatusKind, msg string) {
	v.mu.Lock()
	v.status = Status{Kind: kind, Message: msg}
	v.mu.Unlock()
}
