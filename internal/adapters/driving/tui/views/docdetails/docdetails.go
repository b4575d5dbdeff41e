// Package docdetails provides the document details view component for the TUI.
package docdetails

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/casemap/internal/core/domain"
)

// View is the document details view.
type View struct {
	styles *styles.Styles

	doc          *domain.ResultDocument
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
}

// NewView creates a new document details view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
	}
}

// SetDocument sets the document to display.
func (v *View) SetDocument(doc *domain.ResultDocument) {
	v.doc = doc
	v.scrollOffset = 0
	v.err = nil
}

// SetError sets an error to display.
func (v *View) SetError(err error) {
	v.err = err
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document details view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		maxOffset := v.maxScrollOffset()
		if v.scrollOffset < maxOffset {
			v.scrollOffset++
		}
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewClusters}
		}
	}

	return v, nil
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Reserve lines for title, separator, help, and padding
	reserved := 6
	available := v.height - reserved
	if available < 1 {
		available = 1
	}
	return available
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	lines := v.buildContent()
	maxOffset := len(lines) - v.visibleLines()
	if maxOffset < 0 {
		maxOffset = 0
	}
	return maxOffset
}

// buildContent builds the content lines for display.
func (v *View) buildContent() []string {
	if v.doc == nil {
		return nil
	}
	d := v.doc

	lines := []string{
		v.formatField("ID", d.ID),
		v.formatField("Name", d.DisplayName),
		v.formatField("Category", d.CategoryName),
		v.formatField("Mid", fmt.Sprintf("%d  %s", d.MidCluster, d.MidClusterName)),
		v.formatField("Fine", fmt.Sprintf("%d  %s", d.FineCluster, d.FineClusterName)),
		v.formatField("Quality", fmt.Sprintf("%s (%.2f)", d.QualityTier, d.QualityScore)),
	}

	density := fmt.Sprintf("%d", d.DensityCluster)
	if d.IsDensityNoise {
		density = "noise"
	}
	if d.NestingPurity != nil {
		density += fmt.Sprintf(" (purity %.2f)", *d.NestingPurity)
	}
	lines = append(lines,
		v.formatField("Density", density),
		v.formatField("Position", fmt.Sprintf("%.3f, %.3f", d.X, d.Y)))

	if d.Summary != "" {
		lines = append(lines, "", "Summary:")
		width := max(min(v.width-4, 100), 20)
		for _, line := range strings.Split(wordwrap.String(d.Summary, width), "\n") {
			lines = append(lines, "  "+line)
		}
	}

	return lines
}

// formatField formats a field for display.
func (v *View) formatField(label, value string) string {
	return fmt.Sprintf("%-12s %s", label+":", value)
}

// View renders the document details view.
func (v *View) View() string {
	var b strings.Builder

	// Title
	b.WriteString(v.styles.Title.Render("Document"))
	b.WriteString("\n")

	// Separator
	b.WriteString(strings.Repeat("─", min(v.width-4, 60)))
	b.WriteString("\n\n")

	// Error state
	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.doc == nil {
		b.WriteString(v.styles.Muted.Render("No document selected"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	// Content
	lines := v.buildContent()
	visibleLines := v.visibleLines()
	for i := v.scrollOffset; i < len(lines) && i < v.scrollOffset+visibleLines; i++ {
		line := lines[i]

		// Style based on content
		//nolint:nestif // View rendering requires nested conditional styling
		if line == "Summary:" {
			b.WriteString(v.styles.Subtitle.Render(line))
		} else if strings.HasPrefix(line, "  ") {
			b.WriteString(v.styles.Normal.Render(line))
		} else if strings.Contains(line, ":") {
			// Field label-value
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				b.WriteString(v.styles.Subtitle.Render(parts[0] + ":"))
				b.WriteString(v.styles.Normal.Render(parts[1]))
			} else {
				b.WriteString(v.styles.Normal.Render(line))
			}
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}

	// Scroll indicator
	if len(lines) > visibleLines {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleLines, len(lines)),
			len(lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] scroll  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Document returns the displayed document.
func (v *View) Document() *domain.ResultDocument {
	return v.doc
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
