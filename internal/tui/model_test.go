package tui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/khrees2412/rosterctl/internal/api"
	"github.com/khrees2412/rosterctl/internal/roster"
	"github.com/khrees2412/rosterctl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	mu         sync.Mutex
	candidates []models.Candidate
	listErr    error
	listCalls  int
	upload     *models.UploadResult
	uploaded   []string
	resolved   [][]models.Decision
}

func (s *stubAPI) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.candidates, nil
}

func (s *stubAPI) UploadRoster(ctx context.Context, fileName string, body io.Reader) (*models.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, fileName)
	return s.upload, nil
}

func (s *stubAPI) ResolveDuplicates(ctx context.Context, decisions []models.Decision) (*models.ResolveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, decisions)
	return &models.ResolveResult{Success: make([]json.RawMessage, len(decisions))}, nil
}

func newTestModel(t *testing.T, stub *stubAPI) *Model {
	t.Helper()
	m := New(context.Background(), roster.New(stub))
	return runCommands(t, m, m.Init())
}

// runCommands executes cmd and feeds every resulting message back into the
// model until nothing is left to run
func runCommands(t *testing.T, m *Model, cmd tea.Cmd) *Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatalf("command loop did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
			return m
		default:
			model, nextCmd := m.Update(msg)
			var ok bool
			m, ok = model.(*Model)
			if !ok {
				t.Fatalf("unexpected model type: %T", model)
			}
			queue = append(queue, nextCmd)
		}
	}
	return m
}

func press(t *testing.T, m *Model, keys ...string) *Model {
	t.Helper()
	for _, key := range keys {
		var msg tea.KeyMsg
		switch key {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		model, cmd := m.Update(msg)
		m = runCommands(t, model.(*Model), cmd)
	}
	return m
}

func writeRoster(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("name,email\nAda,ada@example.com\n"), 0600))
	return path
}

func TestInitLoadsTable(t *testing.T) {
	stub := &stubAPI{candidates: []models.Candidate{
		{ID: models.NumericID("1"), Name: "Ada", Email: "ada@example.com", Tags: models.Tags{"math"}},
		{ID: models.NumericID("2"), Name: "Grace", Email: "grace@example.com", Completed: true},
	}}
	m := newTestModel(t, stub)

	assert.Len(t, m.table.Rows(), 2)
	assert.Equal(t, "yes", m.table.Rows()[1][5])
	assert.Contains(t, m.View(), "Ada")
}

func TestLoadErrorShowsReload(t *testing.T) {
	stub := &stubAPI{listErr: &api.Error{Kind: api.KindStatus, Status: 500, Message: "database unavailable"}}
	m := newTestModel(t, stub)

	out := m.View()
	assert.Contains(t, out, "database unavailable")
	assert.Contains(t, out, "r reload")
	assert.NotContains(t, out, "Email")

	stub.mu.Lock()
	stub.listErr = nil
	stub.candidates = []models.Candidate{{ID: models.NumericID("1"), Name: "Ada"}}
	stub.mu.Unlock()

	m = press(t, m, "r")
	assert.Empty(t, m.view.LoadError())
	assert.Len(t, m.table.Rows(), 1)
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	stub := &stubAPI{}
	m := newTestModel(t, stub)

	m = press(t, m, "u", "notes.txt", "enter")
	assert.Empty(t, stub.uploaded)
	assert.Equal(t, roster.StatusError, m.view.Status().Kind)
	assert.Contains(t, m.View(), ".csv, .xlsx, .xls")

	m = press(t, m, "x")
	assert.Equal(t, roster.StatusNone, m.view.Status().Kind)
}

func TestUploadAndResolveDuplicates(t *testing.T) {
	stub := &stubAPI{upload: &models.UploadResult{
		Success: []models.Candidate{{ID: models.NumericID("9")}},
		Duplicates: []models.DuplicateCandidate{
			{New: models.NewRow{Name: "Ada", Email: "ada@example.com"}, Existing: []models.Candidate{{ID: models.NumericID("1"), Name: "Ada", Email: "ada@example.com"}}},
			{New: models.NewRow{Name: "Bob", Email: "bob@example.com"}, Existing: []models.Candidate{{ID: models.NumericID("2")}, {ID: models.NumericID("3")}}},
		},
	}}
	m := newTestModel(t, stub)
	path := writeRoster(t, "roster.csv")

	m = press(t, m, "u", path, "enter")
	require.Equal(t, []string{"roster.csv"}, stub.uploaded)
	require.NotNil(t, m.view.Dialog())
	assert.Contains(t, m.View(), "Possible duplicates (2)")
	assert.Contains(t, m.View(), "matched on email, name; score 90%")

	// skip the first row, pick the second match on the second row
	m = press(t, m, "s", "down", "right", "enter")

	require.Len(t, stub.resolved, 1)
	decisions := stub.resolved[0]
	require.Len(t, decisions, 2)
	assert.Equal(t, models.ActionSkip, decisions[0].Action)
	assert.Nil(t, decisions[0].ExistingID)
	assert.Equal(t, models.ActionUpdate, decisions[1].Action)
	require.NotNil(t, decisions[1].ExistingID)
	assert.Equal(t, models.NumericID("3"), *decisions[1].ExistingID)

	assert.Nil(t, m.view.Dialog())
	assert.Contains(t, m.View(), "Resolved duplicates: 2 succeeded, 0 errors.")
}

func TestEscCancelsDialog(t *testing.T) {
	stub := &stubAPI{upload: &models.UploadResult{Duplicates: []models.DuplicateCandidate{
		{New: models.NewRow{Name: "Ada"}, Existing: []models.Candidate{{ID: models.NumericID("1")}}},
	}}}
	m := newTestModel(t, stub)

	m = press(t, m, "u", writeRoster(t, "roster.xlsx"), "enter")
	require.NotNil(t, m.view.Dialog())

	m = press(t, m, "esc")
	assert.Nil(t, m.view.Dialog())
	assert.Empty(t, stub.resolved)
}

func TestSpinnerTicksUntilRequestAnswers(t *testing.T) {
	m := newTestModel(t, &stubAPI{upload: &models.UploadResult{}})

	// the upload command has not run yet, so the view is not busy
	_ = m.startUpload(writeRoster(t, "roster.csv"))
	require.False(t, m.view.Busy())

	_, cmd := m.Update(m.spinner.Tick())
	assert.NotNil(t, cmd, "spinner stopped before the upload answered")

	m.Update(uploadedMsg{})
	_, cmd = m.Update(m.spinner.Tick())
	assert.Nil(t, cmd)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, &stubAPI{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestRefreshFailureAfterUploadKeepsTable(t *testing.T) {
	stub := &stubAPI{
		candidates: []models.Candidate{{ID: models.NumericID("1"), Name: "Ada"}},
		upload:     &models.UploadResult{Success: []models.Candidate{{ID: models.NumericID("2")}}},
	}
	m := newTestModel(t, stub)

	stub.mu.Lock()
	stub.listErr = errors.New("connection reset")
	stub.mu.Unlock()

	m = press(t, m, "u", writeRoster(t, "roster.csv"), "enter")
	assert.Len(t, m.table.Rows(), 1)
	assert.Empty(t, m.view.LoadError())
	assert.Equal(t, roster.StatusInfo, m.view.Status().Kind)
}
