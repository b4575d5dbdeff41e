// Package runs provides the run history view for the TUI.
package runs

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// listLimit is the number of runs fetched from the history.
const listLimit = 50

// View is the run history view.
type View struct {
	styles *styles.Styles
	runs   driving.RunHistoryService

	records  []domain.RunRecord
	selected int
	width    int
	height   int
	ready    bool
	err      error
	loading  bool
}

// NewView creates a new run history view.
func NewView(s *styles.Styles, runs driving.RunHistoryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		runs:   runs,
	}
}

// Init initialises the view and loads runs.
func (v *View) Init() tea.Cmd {
	return v.Load()
}

// Load returns a command that reads the run history.
func (v *View) Load() tea.Cmd {
	v.loading = true
	runs := v.runs
	return func() tea.Msg {
		if runs == nil {
			return messages.RunsLoaded{Err: fmt.Errorf("run history not available")}
		}
		records, err := runs.List(context.Background(), listLimit)
		return messages.RunsLoaded{Runs: records, Err: err}
	}
}

// Update handles messages for the run history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RunsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.records = msg.Runs
		v.err = nil
		if v.selected >= len(v.records) {
			v.selected = max(len(v.records)-1, 0)
		}
		return v, nil

	case messages.RunDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.Load()
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.records)-1 {
			v.selected++
		}
	case "enter":
		// Only completed runs have a result to browse.
		if run, ok := v.selectedRun(); ok {
			if run.Status != domain.RunCompleted {
				v.err = fmt.Errorf("run %s is %s and has no result", shortID(run.ID), run.Status)
				return v, nil
			}
			return v, func() tea.Msg {
				return messages.RunSelected{Run: run}
			}
		}
	case "d", "delete":
		if run, ok := v.selectedRun(); ok {
			return v, v.deleteRun(run.ID)
		}
	case "r":
		return v, v.Load()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	return v, nil
}

func (v *View) selectedRun() (domain.RunRecord, bool) {
	if v.selected < 0 || v.selected >= len(v.records) {
		return domain.RunRecord{}, false
	}
	return v.records[v.selected], true
}

// deleteRun returns a command that removes a run record.
func (v *View) deleteRun(id string) tea.Cmd {
	runs := v.runs
	return func() tea.Msg {
		if runs == nil {
			return messages.RunDeleted{ID: id, Err: fmt.Errorf("run history not available")}
		}
		err := runs.Delete(context.Background(), id)
		return messages.RunDeleted{ID: id, Err: err}
	}
}

// View renders the run history.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Runs"))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading runs..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if len(v.records) == 0 {
		b.WriteString(v.styles.Muted.Render("No runs recorded. Start one with `casemap run`."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	for i := range v.records {
		b.WriteString(v.renderRun(i, &v.records[i]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderRun renders a single run line.
func (v *View) renderRun(index int, run *domain.RunRecord) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	// Format: > 2026-01-02 15:04  completed  412 docs  24/6  out.json
	started := run.StartedAt.Format("2006-01-02 15:04")
	status := fmt.Sprintf("%-9s", run.Status)
	counts := fmt.Sprintf("%5d docs  %3d/%-3d", run.Documents, run.NFine, run.NMid)
	output := run.OutputPath

	maxOutputLen := max(v.width-len(started)-len(status)-len(counts)-12, 10)
	if len(output) > maxOutputLen {
		output = "..." + output[len(output)-maxOutputLen+3:]
	}

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%s  %s  %s  %s", indicator, started, status, counts, output))
	}

	statusStyle := v.styles.Normal
	switch run.Status {
	case domain.RunFailed:
		statusStyle = v.styles.Error
	case domain.RunRunning:
		statusStyle = v.styles.Muted
	}
	return v.styles.Normal.Render(indicator+started+"  ") +
		statusStyle.Render(status) +
		v.styles.Normal.Render("  "+counts+"  ") +
		v.styles.Muted.Render(output)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[enter] browse  [d] delete  [r] reload  [esc] back  [q] quit")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Runs returns the listed runs.
func (v *View) Runs() []domain.RunRecord {
	return v.records
}

// SelectedIndex returns the currently selected run index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
