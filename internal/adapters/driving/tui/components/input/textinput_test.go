package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
)

func TestNewTextInput(t *testing.T) {
	input := NewTextInput(styles.DefaultStyles(), "Filter", "cluster name...")

	require.NotNil(t, input)
	assert.Equal(t, "", input.Value())
	assert.Equal(t, "Filter", input.Label())
	assert.True(t, input.Focused())
}

func TestNewTextInput_NilStyles(t *testing.T) {
	input := NewTextInput(nil, "Filter", "")

	require.NotNil(t, input)
	assert.NotNil(t, input.styles)
}

func TestTextInput_Init(t *testing.T) {
	input := NewTextInput(nil, "Filter", "")

	assert.NotNil(t, input.Init())
}

func TestTextInput_Update(t *testing.T) {
	input := NewTextInput(nil, "Filter", "")

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t', 'o'}}
	updated, _ := input.Update(msg)

	assert.Equal(t, input, updated)
	assert.Equal(t, "to", input.Value())
}

func TestTextInput_View(t *testing.T) {
	input := NewTextInput(nil, "reducer.seed", "")

	assert.Contains(t, input.View(), "reducer.seed")
}

func TestTextInput_SetValueAndReset(t *testing.T) {
	input := NewTextInput(nil, "Filter", "")

	input.SetValue("tort")
	assert.Equal(t, "tort", input.Value())

	input.Reset()
	assert.Equal(t, "", input.Value())
}

func TestTextInput_SetLabel(t *testing.T) {
	input := NewTextInput(nil, "Filter", "")

	input.SetLabel("annotator.retries")

	assert.Equal(t, "annotator.retries", input.Label())
}

func TestTextInput_FocusBlur(t *testing.T) {
	input := NewTextInput(nil, "Filter", "")

	input.Blur()
	assert.False(t, input.Focused())

	input.Focus()
	assert.True(t, input.Focused())
}

func TestTextInput_SetWidth(t *testing.T) {
	input := NewTextInput(nil, "Filter", "")

	input.SetWidth(100)
	assert.Equal(t, 100, input.Width())
	assert.Equal(t, 86, input.textinput.Width)

	input.SetWidth(10)
	assert.Equal(t, 20, input.textinput.Width)
}
