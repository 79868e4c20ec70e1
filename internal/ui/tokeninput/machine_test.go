package tokeninput

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/model"
)

var suggestions = []model.Suggestion{
	{Name: "Jo Doe", Address: "jo@example.com", FromContact: true},
	{Name: "Joan Roe", Address: "joan@example.com"},
	{Address: "jones@example.com"},
}

func TestCommitDraft(t *testing.T) {
	m := NewMachine()
	m.Type("Ann <ann@example.com>,")

	added, err := m.Commit()
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []Token{{Name: "Ann", Address: "ann@example.com"}}, m.Tokens())
	assert.Empty(t, m.Draft())
}

func TestCommitInvalidKeepsDraft(t *testing.T) {
	m := NewMachine()
	m.Type("not an address")

	added, err := m.Commit()
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.False(t, added)
	assert.Equal(t, "not an address", m.Draft())
	assert.Empty(t, m.Tokens())
}

func TestCommitEmptyDraftIsNoop(t *testing.T) {
	m := NewMachine()
	added, err := m.Commit()
	assert.NoError(t, err)
	assert.False(t, added)
}

func TestHighlightedSuggestionWins(t *testing.T) {
	m := NewMachine()
	m.Type("jo")
	m.SetSuggestions("jo", suggestions)
	require.True(t, m.Open())
	assert.Equal(t, 0, m.Highlight())

	m.Next()
	added, err := m.Commit()
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "joan@example.com", m.Tokens()[0].Address)
	assert.False(t, m.Open())
}

func TestHighlightWraps(t *testing.T) {
	m := NewMachine()
	m.Type("jo")
	m.SetSuggestions("jo", suggestions)

	m.Prev()
	assert.Equal(t, 2, m.Highlight())
	m.Next()
	assert.Equal(t, 0, m.Highlight())
}

func TestStaleSuggestionsIgnored(t *testing.T) {
	m := NewMachine()
	m.Type("joa")
	m.SetSuggestions("jo", suggestions)
	assert.False(t, m.Open())
}

func TestSuggestionsSkipExistingTokens(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Add("JO@example.com"))
	m.Type("jo")
	m.SetSuggestions("jo", suggestions)
	require.Len(t, m.Suggestions(), 2)
	assert.Equal(t, "joan@example.com", m.Suggestions()[0].Address)
}

func TestDuplicateIgnored(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Add("jo@example.com"))
	m.Type("Jo@Example.com")

	added, err := m.Commit()
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, m.Tokens(), 1)
	assert.Empty(t, m.Draft())
}

func TestDismissKeepsDraft(t *testing.T) {
	m := NewMachine()
	m.Type("jo")
	m.SetSuggestions("jo", suggestions)
	m.Dismiss()
	assert.False(t, m.Open())
	assert.Equal(t, -1, m.Highlight())
	assert.Equal(t, "jo", m.Draft())
}

func TestBackspaceAndRemove(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Add("a@example.com, b@example.com, c@example.com"))

	m.Remove(1)
	assert.Equal(t, "c@example.com", m.Tokens()[1].Address)
	m.Remove(7)
	assert.Len(t, m.Tokens(), 2)

	m.Type("x")
	assert.False(t, m.Backspace())
	m.Type("")
	assert.True(t, m.Backspace())
	assert.Len(t, m.Tokens(), 1)
}

func TestCopiesDoNotShareTokens(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Add("a@example.com"))
	c := m
	require.NoError(t, c.Add("b@example.com"))
	m.Type("c@example.com")
	_, err := m.Commit()
	require.NoError(t, err)

	assert.Equal(t, "b@example.com", c.Tokens()[1].Address)
	assert.Equal(t, "c@example.com", m.Tokens()[1].Address)
}

func TestModelKeys(t *testing.T) {
	in := New("To", func(prefix string) ([]model.Suggestion, error) {
		return suggestions, nil
	})
	in.Focus()

	var cmd tea.Cmd
	for _, r := range "jo" {
		in, cmd = in.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	require.NotNil(t, cmd)
	in, _ = in.Update(suggestionsMsg{id: in.id, query: "jo", items: suggestions})
	assert.True(t, in.Machine().Open())

	in, _ = in.Update(tea.KeyMsg{Type: tea.KeyDown})
	in, _ = in.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "joan@example.com", in.Machine().Tokens()[0].Address)

	in, _ = in.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Empty(t, in.Machine().Tokens())
}
