// Package tui is the interactive roster screen: the candidate table, the
// upload input and the duplicate resolution dialog, all driven by a
// roster.View.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/khrees2412/rosterctl/internal/matcher"
	"github.com/khrees2412/rosterctl/internal/roster"
	"github.com/khrees2412/rosterctl/pkg/models"
)

// mode is which part of the screen has the keyboard
type mode int

const (
	modeBrowse mode = iota // table focused
	modeInput              // typing a file path
)

type loadedMsg struct{ err error }

type uploadedMsg struct{ err error }

type resolvedMsg struct{ err error }

// Model is the bubbletea model for the roster screen
type Model struct {
	ctx  context.Context
	view *roster.View

	mode    mode
	table   table.Model
	input   textinput.Model
	spinner spinner.Model

	// index of the highlighted dialog row
	dialogCursor int

	// requests started but not yet answered. Set before the command runs so
	// the spinner keeps going until the view reports busy.
	pending int

	width  int
	height int
}

var columns = []table.Column{
	{Title: "ID", Width: 6},
	{Title: "Name", Width: 22},
	{Title: "Email", Width: 28},
	{Title: "Tags", Width: 20},
	{Title: "Tests", Width: 20},
	{Title: "Done", Width: 5},
}

// New returns a model for view. ctx bounds every request the screen makes.
func New(ctx context.Context, view *roster.View) *Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	ti := textinput.New()
	ti.Prompt = "File: "
	ti.Placeholder = "path/to/roster.csv"
	ti.CharLimit = 512
	ti.Width = 60
	ti.Cursor.SetMode(cursor.CursorStatic)

	s := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &Model{
		ctx:     ctx,
		view:    view,
		table:   t,
		input:   ti,
		spinner: s,
	}
}

// Init loads the roster
func (m *Model) Init() tea.Cmd {
	return m.startLoad()
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if h := msg.Height - 12; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case loadedMsg, uploadedMsg:
		m.finish()
		m.syncTable()
		m.clampDialogCursor()
		return m, nil

	case resolvedMsg:
		m.finish()
		m.syncTable()
		if m.view.Dialog() == nil {
			m.dialogCursor = 0
		}
		return m, nil

	case spinner.TickMsg:
		// stop ticking once nothing is in flight
		if m.pending == 0 && !m.view.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.view.Dialog() != nil {
			return m, m.handleDialogKey(msg)
		}
		if m.mode == modeInput {
			return m, m.handleInputKey(msg)
		}
		return m, m.handleBrowseKey(msg)
	}

	return m, nil
}

func (m *Model) handleBrowseKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "r":
		if m.view.LoadError() != "" || !m.view.Loaded() {
			return m.startLoad()
		}
		return nil
	case "x":
		m.view.DismissStatus()
		return nil
	case "u", "o":
		if m.view.LoadError() != "" || m.view.Uploading() {
			return nil
		}
		m.mode = modeInput
		m.input.Reset()
		m.input.Focus()
		return nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.leaveInput()
		return nil
	case "enter":
		path := strings.TrimSpace(m.input.Value())
		m.leaveInput()
		if path == "" {
			return nil
		}
		m.view.SelectFile(path)
		return m.startUpload(path)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleDialogKey(msg tea.KeyMsg) tea.Cmd {
	dialog := m.view.Dialog()
	rows := dialog.Rows()
	if len(rows) == 0 {
		if msg.String() == "esc" {
			m.view.Cancel()
		}
		return nil
	}
	m.clampDialogCursor()
	row := rows[m.dialogCursor]

	switch msg.String() {
	case "up", "k":
		if m.dialogCursor > 0 {
			m.dialogCursor--
		}
	case "down", "j":
		if m.dialogCursor < len(rows)-1 {
			m.dialogCursor++
		}
	case "u":
		_ = dialog.Choose(row.Token, models.ActionUpdate)
	case "s":
		_ = dialog.Choose(row.Token, models.ActionSkip)
	case "left", "h":
		m.cycleMatch(dialog, row, -1)
	case "right", "l":
		m.cycleMatch(dialog, row, 1)
	case "esc":
		if !m.view.Resolving() {
			m.view.Cancel()
			m.dialogCursor = 0
		}
	case "x":
		m.view.DismissStatus()
	case "enter":
		if m.view.Resolving() {
			return nil
		}
		return m.startResolve()
	}
	return nil
}

// cycleMatch moves the selected existing record by delta, wrapping around
func (m *Model) cycleMatch(dialog *roster.Dialog, row roster.Row, delta int) {
	existing := row.Duplicate.Existing
	if len(existing) < 2 {
		return
	}
	current := 0
	if d, err := dialog.Decision(row.Token); err == nil && d.ExistingID != nil {
		for i, c := range existing {
			if c.ID == *d.ExistingID {
				current = i
				break
			}
		}
	}
	next := (current + delta + len(existing)) % len(existing)
	_ = dialog.SelectMatch(row.Token, existing[next].ID)
}

func (m *Model) leaveInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) finish() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m *Model) startLoad() tea.Cmd {
	m.pending++
	view, ctx := m.view, m.ctx
	return tea.Batch(func() tea.Msg {
		return loadedMsg{err: view.Load(ctx)}
	}, m.spinner.Tick)
}

func (m *Model) startUpload(path string) tea.Cmd {
	m.pending++
	view, ctx := m.view, m.ctx
	return tea.Batch(func() tea.Msg {
		return uploadedMsg{err: view.UploadPath(ctx, path)}
	}, m.spinner.Tick)
}

func (m *Model) startResolve() tea.Cmd {
	m.pending++
	view, ctx := m.view, m.ctx
	return tea.Batch(func() tea.Msg {
		return resolvedMsg{err: view.Resolve(ctx)}
	}, m.spinner.Tick)
}

func (m *Model) syncTable() {
	candidates := m.view.Candidates()
	rows := make([]table.Row, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, table.Row{
			c.ID.String(),
			c.Name,
			c.Email,
			strings.Join(c.Tags, ", "),
			testNames(c.Tests),
			yesNo(c.Completed),
		})
	}
	m.table.SetRows(rows)
}

func (m *Model) clampDialogCursor() {
	dialog := m.view.Dialog()
	if dialog == nil {
		m.dialogCursor = 0
		return
	}
	if n := dialog.Len(); m.dialogCursor >= n {
		m.dialogCursor = max(n-1, 0)
	}
}

// View renders the screen
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Candidate Roster"))
	b.WriteString("\n")

	if banner := m.renderStatus(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n\n")
	}

	switch {
	case !m.view.Loaded():
		b.WriteString(m.spinner.View() + " Loading candidates...\n")
		return b.String()
	case m.view.LoadError() != "":
		b.WriteString(errorStyle.Render("Error: " + m.view.LoadError()))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("r reload • q quit"))
		b.WriteString("\n")
		return b.String()
	}

	if dialog := m.view.Dialog(); dialog != nil {
		b.WriteString(m.renderDialog(dialog))
		b.WriteString("\n")
		return b.String()
	}

	if len(m.view.Candidates()) == 0 {
		b.WriteString(dimStyle.Render("No candidates yet. Upload a roster to get started."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.view.Uploading():
		b.WriteString(m.spinner.View() + " Uploading...\n")
	case m.mode == modeInput:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter upload • esc cancel • accepts " + strings.Join(roster.AcceptedExtensions, ", ")))
		b.WriteString("\n")
	default:
		b.WriteString(helpStyle.Render("u upload roster • x dismiss • q quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderStatus() string {
	status := m.view.Status()
	switch status.Kind {
	case roster.StatusInfo:
		return infoStyle.Render(status.Message) + helpStyle.Render("  (x to dismiss)")
	case roster.StatusError:
		return errorStyle.Render(status.Message) + helpStyle.Render("  (x to dismiss)")
	}
	return ""
}

func (m *Model) renderDialog(dialog *roster.Dialog) string {
	var b strings.Builder
	rows := dialog.Rows()
	b.WriteString(selectedStyle.Render(fmt.Sprintf("Possible duplicates (%d)", len(rows))))
	b.WriteString("\n\n")

	for i, row := range rows {
		marker := "  "
		style := dimStyle
		if i == m.dialogCursor {
			marker = "> "
			style = selectedStyle
		}
		incoming := row.Duplicate.New
		b.WriteString(style.Render(fmt.Sprintf("%s%s <%s>", marker, incoming.Name, incoming.Email)))
		if len(incoming.Tags) > 0 {
			b.WriteString(dimStyle.Render(" [" + incoming.Tags.String() + "]"))
		}
		b.WriteString("\n")

		decision, err := dialog.Decision(row.Token)
		if err != nil {
			continue
		}
		b.WriteString("    " + describeDecision(decision, row))
		if !dialog.Touched(row.Token) {
			b.WriteString(dimStyle.Render(" (default)"))
		}
		b.WriteString("\n")
		if dialog.NeedsSelector(row.Token) && i == m.dialogCursor {
			b.WriteString(dimStyle.Render(fmt.Sprintf("    %d existing matches, ←/→ to choose", len(row.Duplicate.Existing))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.view.Resolving() {
		b.WriteString(m.spinner.View() + " Resolving...")
	} else {
		b.WriteString(helpStyle.Render("↑/↓ row • u update • s skip • ←/→ match • enter submit • esc cancel"))
	}
	return dialogStyle.Render(b.String())
}

func describeDecision(decision models.Decision, row roster.Row) string {
	if decision.Action != models.ActionUpdate || decision.ExistingID == nil {
		return "skip"
	}
	for _, existing := range row.Duplicate.Existing {
		if existing.ID == *decision.ExistingID {
			return fmt.Sprintf("update %s <%s> #%s (matched on %s)",
				existing.Name, existing.Email, existing.ID, matcher.Summary(row.Duplicate.New, existing))
		}
	}
	return "update #" + decision.ExistingID.String()
}

func testNames(tests []models.AssignedTest) string {
	names := make([]string, 0, len(tests))
	for _, t := range tests {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
