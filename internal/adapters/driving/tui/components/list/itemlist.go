// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Item is one row of a list: a cluster or a document.
type Item struct {
	// Key identifies the row to the owning view (cluster id, document index).
	Key int

	// Title is the main label.
	Title string

	// Detail is shown muted under the title.
	Detail string

	// Badge is shown right of the title (size, category).
	Badge string

	// Tier colours the badge when set.
	Tier domain.QualityTier
}

// ItemList displays items in a navigable, filterable list.
type ItemList struct {
	items    []Item
	visible  []int
	filter   string
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewItemList creates a new item list component.
func NewItemList(s *styles.Styles) *ItemList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ItemList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *ItemList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *ItemList) Update(msg tea.Msg) (*ItemList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home", "g":
			l.selected = 0
		case "end", "G":
			l.selected = max(len(l.visible)-1, 0)
		}
	}
	return l, nil
}

// View renders the visible window of the list.
func (l *ItemList) View() string {
	if len(l.visible) == 0 {
		if l.filter != "" {
			return l.styles.Muted.Render(fmt.Sprintf("Nothing matches %q", l.filter))
		}
		return l.styles.Muted.Render("Nothing to show")
	}

	// Items with a detail line take two rows.
	visibleCount := max((l.height-2)/2, 1)

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(l.visible))

	lines := make([]string, 0, (end-start)*2+1)
	for i := start; i < end; i++ {
		lines = append(lines, l.renderItem(i, &l.items[l.visible[i]]))
	}
	if len(l.visible) > visibleCount {
		lines = append(lines, l.styles.Muted.Render(
			fmt.Sprintf("  [%d-%d of %d]", start+1, end, len(l.visible))))
	}

	return strings.Join(lines, "\n")
}

// renderItem formats one row with its optional detail line.
func (l *ItemList) renderItem(pos int, item *Item) string {
	indicator := "  "
	if pos == l.selected {
		indicator = "> "
	}

	maxTitleLen := max(l.width-len(item.Badge)-8, 10)
	title := Truncate(item.Title, maxTitleLen)

	var line string
	if pos == l.selected {
		line = l.styles.Selected.Render(fmt.Sprintf("%s%-*s", indicator, maxTitleLen, title))
	} else {
		line = l.styles.Normal.Render(fmt.Sprintf("%s%-*s", indicator, maxTitleLen, title))
	}
	if item.Badge != "" {
		badge := l.styles.Muted
		if item.Tier != "" {
			badge = l.styles.Tier(item.Tier)
		}
		line += "  " + badge.Render(item.Badge)
	}

	if item.Detail != "" {
		line += "\n" + l.styles.Muted.Render("    "+Truncate(item.Detail, max(l.width-6, 20)))
	}
	return line
}

// SetItems replaces the items and clears the filter.
func (l *ItemList) SetItems(items []Item) {
	l.items = items
	l.filter = ""
	l.applyFilter()
}

// SetFilter keeps only items whose title contains query, case-insensitively.
func (l *ItemList) SetFilter(query string) {
	l.filter = strings.TrimSpace(query)
	l.applyFilter()
}

// Filter returns the active filter.
func (l *ItemList) Filter() string {
	return l.filter
}

func (l *ItemList) applyFilter() {
	l.visible = l.visible[:0]
	needle := strings.ToLower(l.filter)
	for i := range l.items {
		if needle == "" || strings.Contains(strings.ToLower(l.items[i].Title), needle) {
			l.visible = append(l.visible, i)
		}
	}
	l.selected = 0
}

// SelectedItem returns the currently selected item, or nil if none.
func (l *ItemList) SelectedItem() *Item {
	if l.selected < 0 || l.selected >= len(l.visible) {
		return nil
	}
	return &l.items[l.visible[l.selected]]
}

// Selected returns the position of the selection among visible items.
func (l *ItemList) Selected() int {
	return l.selected
}

// SetSelected moves the selection to a visible position.
func (l *ItemList) SetSelected(pos int) {
	if pos >= 0 && pos < len(l.visible) {
		l.selected = pos
	}
}

// MoveUp moves selection up.
func (l *ItemList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ItemList) MoveDown() {
	if l.selected < len(l.visible)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *ItemList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of visible items.
func (l *ItemList) Count() int {
	return len(l.visible)
}

// Total returns the number of items before filtering.
func (l *ItemList) Total() int {
	return len(l.items)
}

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
