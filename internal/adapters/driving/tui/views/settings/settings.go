// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// View is the settings configuration view. Every setting key is listed with
// its current value and can be edited in place.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	settings *domain.AppSettings
	keys     []string
	err      error
	notice   string

	selected int
	offset   int
	editing  bool
	editor   *input.TextInput

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	var keys []string
	if settingsService != nil {
		keys = settingsService.Keys()
	}

	return &View{
		styles:          s,
		settingsService: settingsService,
		keys:            keys,
		editor:          input.NewTextInput(s, "Value", ""),
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads current settings.
func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: fmt.Errorf("settings service not available")}
		}
		settings, err := svc.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// saveSetting returns a command that writes one setting.
func (v *View) saveSetting(key, value string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingSaved{Key: key, Err: fmt.Errorf("settings service not available")}
		}
		return messages.SettingSaved{Key: key, Err: svc.Set(key, value)}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.settings = msg.Settings
			v.err = nil
		}
		return v, nil

	case messages.SettingSaved:
		if msg.Err != nil {
			v.err = msg.Err
			v.notice = ""
			return v, nil
		}
		v.err = nil
		v.notice = fmt.Sprintf("Saved %s", msg.Key)
		return v, v.loadSettings()

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKeys(msg)
		}
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles navigation keys.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.keys)-1 {
			v.selected++
		}
	case "r":
		return v, v.loadSettings()
	case "enter", "e":
		return v, v.startEdit()
	}
	v.scroll()
	return v, nil
}

// handleEditKeys handles keys while a value is being edited.
func (v *View) handleEditKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.stopEdit()
		return v, nil
	case "enter":
		key := v.SelectedKey()
		value := strings.TrimSpace(v.editor.Value())
		v.stopEdit()
		return v, v.saveSetting(key, value)
	}

	var cmd tea.Cmd
	v.editor, cmd = v.editor.Update(msg)
	return v, cmd
}

func (v *View) startEdit() tea.Cmd {
	key := v.SelectedKey()
	if key == "" || v.settings == nil {
		return nil
	}
	v.editing = true
	v.notice = ""
	v.editor.SetLabel(key)
	v.editor.Reset()
	// Secrets are masked for display and are always typed afresh.
	if !isSecret(key) {
		if value, ok := v.settingsService.Value(v.settings, key); ok {
			v.editor.SetValue(value)
		}
	}
	return v.editor.Focus()
}

func (v *View) stopEdit() {
	v.editing = false
	v.editor.Blur()
	v.editor.Reset()
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, ".api_key")
}

// visibleRows returns the number of setting rows that fit.
func (v *View) visibleRows() int {
	return max(v.height-10, 5)
}

// scroll keeps the selection inside the visible window.
func (v *View) scroll() {
	rows := v.visibleRows()
	if v.selected < v.offset {
		v.offset = v.selected
	}
	if v.selected >= v.offset+rows {
		v.offset = v.selected - rows + 1
	}
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		if v.err == nil {
			b.WriteString(v.styles.Muted.Render("Loading settings..."))
			b.WriteString("\n\n")
		}
		b.WriteString(v.renderHelp())
		return b.String()
	}

	b.WriteString(v.renderProviders())
	b.WriteString("\n\n")

	rows := v.visibleRows()
	end := min(v.offset+rows, len(v.keys))
	group := ""
	for i := v.offset; i < end; i++ {
		key := v.keys[i]
		if g, _, ok := strings.Cut(key, "."); ok && g != group {
			group = g
			b.WriteString(v.styles.Subtitle.Render(group))
			b.WriteString("\n")
		}
		b.WriteString(v.renderRow(i, key))
		b.WriteString("\n")
	}
	if len(v.keys) > rows {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.offset+1, end, len(v.keys))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.editing {
		b.WriteString(v.editor.View())
		b.WriteString("\n\n")
	} else if v.notice != "" {
		b.WriteString(v.styles.Muted.Render(v.notice))
		b.WriteString("\n\n")
	}
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderProviders summarises the configured AI providers.
func (v *View) renderProviders() string {
	emb := v.settings.Embedding
	llm := v.settings.LLM
	return fmt.Sprintf("%s %s\n%s %s",
		v.styles.Subtitle.Render(fmt.Sprintf("%-11s", "Embedding:")),
		v.providerStatus(emb.Provider, emb.Model, emb.IsConfigured()),
		v.styles.Subtitle.Render(fmt.Sprintf("%-11s", "LLM:")),
		v.providerStatus(llm.Provider, llm.Model, llm.IsConfigured()))
}

func (v *View) providerStatus(provider domain.AIProvider, model string, configured bool) string {
	if !configured {
		return v.styles.Muted.Render("not configured")
	}
	if model == "" {
		model = "default model"
	}
	return v.styles.Normal.Render(fmt.Sprintf("%s (%s)", provider, model))
}

// renderRow renders one key and its value.
func (v *View) renderRow(index int, key string) string {
	value, _ := v.settingsService.Value(v.settings, key)
	if value == "" {
		value = "-"
	}
	_, name, _ := strings.Cut(key, ".")
	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("> %-22s %s", name, value))
	}
	return v.styles.Normal.Render(fmt.Sprintf("  %-22s ", name)) + v.styles.Muted.Render(value)
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	if v.editing {
		return v.styles.Help.Render("[enter] save  [esc] cancel")
	}
	return v.styles.Help.Render("[↑/↓] move  [enter] edit  [r] reload  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.editor.SetWidth(width)
	v.scroll()
}

// SelectedKey returns the key under the cursor.
func (v *View) SelectedKey() string {
	if v.selected < 0 || v.selected >= len(v.keys) {
		return ""
	}
	return v.keys[v.selected]
}

// Editing reports whether a value is being edited.
func (v *View) Editing() bool {
	return v.editing
}

// Settings returns the loaded settings.
func (v *View) Settings() *domain.AppSettings {
	return v.settings
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Reset leaves edit mode and clears messages.
func (v *View) Reset() {
	v.stopEdit()
	v.err = nil
	v.notice = ""
}
