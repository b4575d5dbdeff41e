// Package clusters provides the hierarchy browser view for the TUI.
// It walks mid clusters, their fine clusters and the documents beneath them.
package clusters

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// Level is the depth of the browser.
type Level int

// Browser levels.
const (
	LevelMid Level = iota
	LevelFine
	LevelDocuments
)

// String returns the level name shown in the breadcrumb.
func (l Level) String() string {
	switch l {
	case LevelMid:
		return "mid"
	case LevelFine:
		return "fine"
	case LevelDocuments:
		return "documents"
	default:
		return "unknown"
	}
}

// View is the cluster browser.
type View struct {
	styles  *styles.Styles
	results driving.ResultService
	path    string

	result *domain.Result
	level  Level
	mid    *domain.MidCluster
	fine   *domain.FineCluster

	// Selection of the parent levels, restored when going back up.
	midPos  int
	finePos int

	list      *list.ItemList
	filter    *input.TextInput
	filtering bool

	loading bool
	err     error
	width   int
	height  int
	ready   bool
}

// NewView creates a new cluster browser. Without a pinned path it shows the
// output of the latest completed run.
func NewView(s *styles.Styles, results driving.ResultService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles:  s,
		results: results,
		list:    list.NewItemList(s),
		filter:  input.NewTextInput(s, "Filter", "cluster or document name"),
		width:   80,
		height:  24,
	}
}

// SetPath pins the result file to browse. An empty path follows the latest run.
func (v *View) SetPath(path string) {
	v.path = path
}

// Path returns the pinned result path.
func (v *View) Path() string {
	return v.path
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load returns a command that reads the result.
func (v *View) Load() tea.Cmd {
	if v.results == nil {
		return nil
	}
	v.loading = true
	v.err = nil

	results := v.results
	path := v.path
	return func() tea.Msg {
		ctx := context.Background()
		var (
			res *domain.Result
			err error
		)
		if path != "" {
			res, err = results.Load(ctx, path)
		} else {
			res, err = results.Latest(ctx)
		}
		return messages.ResultLoaded{Path: path, Result: res, Err: err}
	}
}

// Update handles messages for the cluster browser.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ResultLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.SetResult(msg.Result)
		return v, nil

	case tea.KeyMsg:
		if v.filtering {
			return v.handleFilterKey(msg)
		}
		return v.handleKey(msg)
	}

	return v, nil
}

func (v *View) handleFilterKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "enter":
		v.filtering = false
		v.filter.Blur()
		return v, nil
	case "esc":
		v.filtering = false
		v.filter.Blur()
		v.filter.Reset()
		v.list.SetFilter("")
		return v, nil
	}

	var cmd tea.Cmd
	v.filter, cmd = v.filter.Update(msg)
	v.list.SetFilter(v.filter.Value())
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, v.up()
	case "r":
		return v, v.Load()
	}

	if v.result == nil {
		return v, nil
	}

	switch msg.String() {
	case "/":
		v.filtering = true
		v.filter.SetValue(v.list.Filter())
		return v, v.filter.Focus()
	case "enter":
		return v, v.open()
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// open descends into the selected item.
func (v *View) open() tea.Cmd {
	item := v.list.SelectedItem()
	if item == nil {
		return nil
	}

	switch v.level {
	case LevelMid:
		mid, ok := v.result.Meta.Hierarchy.MidByID(item.Key)
		if !ok {
			return nil
		}
		v.midPos = v.list.Selected()
		v.mid = mid
		v.level = LevelFine
		v.refresh()
	case LevelFine:
		fine, _, ok := v.result.Meta.Hierarchy.FineByID(item.Key)
		if !ok {
			return nil
		}
		v.finePos = v.list.Selected()
		v.fine = fine
		v.level = LevelDocuments
		v.refresh()
	case LevelDocuments:
		doc := v.result.Documents[item.Key]
		return func() tea.Msg {
			return messages.DocumentSelected{Document: doc}
		}
	}
	return nil
}

// up returns to the parent level, or to the menu from the top.
func (v *View) up() tea.Cmd {
	switch v.level {
	case LevelDocuments:
		v.level = LevelFine
		v.fine = nil
		v.refresh()
		v.list.SetSelected(v.finePos)
	case LevelFine:
		v.level = LevelMid
		v.mid = nil
		v.refresh()
		v.list.SetSelected(v.midPos)
	default:
		return func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return nil
}

// SetResult replaces the browsed result and returns to the top level.
// Results without a hierarchy block are shown as an error.
func (v *View) SetResult(res *domain.Result) {
	v.result = nil
	v.level = LevelMid
	v.mid = nil
	v.fine = nil
	v.midPos = 0
	v.finePos = 0
	v.filtering = false
	v.filter.Blur()

	if res == nil || res.Meta.Hierarchy == nil {
		v.err = fmt.Errorf("%w: result has no hierarchy", domain.ErrNotFound)
		v.list.SetItems(nil)
		return
	}
	v.err = nil
	v.result = res
	v.refresh()
}

// refresh rebuilds the list for the current level.
func (v *View) refresh() {
	v.filter.Reset()
	switch v.level {
	case LevelMid:
		v.list.SetItems(midItems(v.result.Meta.Hierarchy))
	case LevelFine:
		v.list.SetItems(fineItems(v.mid))
	case LevelDocuments:
		v.list.SetItems(documentItems(v.result, v.fine.ID))
	}
}

func midItems(h *domain.Hierarchy) []list.Item {
	items := make([]list.Item, 0, len(h.Mid))
	for i := range h.Mid {
		mid := &h.Mid[i]
		items = append(items, list.Item{
			Key:    mid.ID,
			Title:  mid.Name,
			Detail: fmt.Sprintf("%s · %d fine clusters", mid.Category.Name, len(mid.Fine)),
			Badge:  fmt.Sprintf("%d docs", mid.Size),
		})
	}
	return items
}

func fineItems(mid *domain.MidCluster) []list.Item {
	items := make([]list.Item, 0, len(mid.Fine))
	for i := range mid.Fine {
		fine := &mid.Fine[i]
		items = append(items, list.Item{
			Key:   fine.ID,
			Title: fine.Name,
			Detail: fmt.Sprintf("%s quality %.2f · noise %.0f%%",
				fine.Quality.Tier, fine.Quality.Score, fine.Quality.NoiseRatio*100),
			Badge: fmt.Sprintf("%d docs", fine.Size),
			Tier:  fine.Quality.Tier,
		})
	}
	return items
}

// documentItems lists the documents of a fine cluster in corpus order.
// Keys are indices into the result's document list.
func documentItems(res *domain.Result, fineID int) []list.Item {
	var items []list.Item
	for i := range res.Documents {
		doc := &res.Documents[i]
		if doc.FineCluster != fineID {
			continue
		}
		badge := ""
		if doc.IsDensityNoise {
			badge = "noise"
		}
		items = append(items, list.Item{
			Key:    i,
			Title:  doc.DisplayName,
			Detail: doc.Summary,
			Badge:  badge,
		})
	}
	return items
}

// View renders the cluster browser.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Clusters"))
	b.WriteString("\n")
	b.WriteString(v.styles.Breadcrumb.Render(v.Breadcrumb()))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading result..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Help.Render("[r] reload  [esc] back"))
		return b.String()
	case v.result == nil:
		b.WriteString(v.styles.Muted.Render("No result loaded"))
	default:
		b.WriteString(v.styles.Muted.Render(v.summary()))
		b.WriteString("\n\n")
		if v.filtering || v.list.Filter() != "" {
			b.WriteString(v.filter.View())
			b.WriteString("\n\n")
		}
		b.WriteString(v.list.View())
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] move  [enter] open  [/] filter  [r] reload  [esc] back"))

	return b.String()
}

// Breadcrumb describes the current position in the hierarchy.
func (v *View) Breadcrumb() string {
	parts := []string{"All"}
	if v.mid != nil {
		parts = append(parts, v.mid.Name)
	}
	if v.fine != nil {
		parts = append(parts, v.fine.Name)
	}
	return strings.Join(parts, " › ")
}

// summary is the header line of a loaded result.
func (v *View) summary() string {
	meta := v.result.Meta
	line := fmt.Sprintf("%d documents · %d mid · %d fine · %d density clusters (%.1f%% noise)",
		meta.TotalDocuments, meta.NMid, meta.NFine, meta.Density.Clusters, meta.Density.NoisePercent)
	if meta.Partial {
		line += " · partial"
	}
	if n := len(meta.Failures); n > 0 {
		line += fmt.Sprintf(" · %d annotation failures", n)
	}
	return line
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.list.SetDimensions(width, max(height-12, 4))
	v.filter.SetWidth(width)
}

// Level returns the current browser level.
func (v *View) Level() Level {
	return v.level
}

// Result returns the browsed result, or nil.
func (v *View) Result() *domain.Result {
	return v.result
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Filtering reports whether the filter input has focus.
func (v *View) Filtering() bool {
	return v.filtering
}

// Count returns the number of listed items.
func (v *View) Count() int {
	return v.list.Count()
}
