package contactlist

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/tests/testutil"
)

func loaded(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ContactsLoadedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	m, _ = m.Update(msg)
	return m
}

func TestLoadAndSelect(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	_, err := s.CreateContact(ctx, map[string]string{"firstName": "Zoe", "email": "zoe@example.com"})
	require.NoError(t, err)
	_, err = s.CreateContact(ctx, map[string]string{"firstName": "Ann", "company": "Acme"})
	require.NoError(t, err)

	m := New(s, keys.DefaultKeyMap(), 80, 24)
	m = loaded(t, m, m.Init())
	require.Len(t, m.list.Items(), 2)

	c, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "Ann", c.DisplayName())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	view, ok := cmd().(ViewContactMsg)
	require.True(t, ok)
	assert.Equal(t, c.ID, view.Contact.ID)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.NotNil(t, cmd)
	edit, ok := cmd().(EditContactMsg)
	require.True(t, ok)
	assert.Equal(t, c.ID, edit.Contact.ID)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	require.NotNil(t, cmd)
	assert.IsType(t, ComposeToMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	require.NotNil(t, cmd)
	assert.IsType(t, NewContactMsg{}, cmd())
}

func TestSearchFiltersByQuery(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	_, err := s.CreateContact(ctx, map[string]string{"firstName": "Zoe", "email": "zoe@example.com"})
	require.NoError(t, err)
	_, err = s.CreateContact(ctx, map[string]string{"firstName": "Ann"})
	require.NoError(t, err)

	m := New(s, keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, m.Searching())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zoe@")})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.Searching())

	m = loaded(t, m, cmd)
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "Zoe", m.list.Items()[0].(ContactItem).Contact.DisplayName())
}

func TestDeleteAsksFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	c, err := s.CreateContact(context.Background(), map[string]string{"firstName": "Ann"})
	require.NoError(t, err)

	m := New(s, keys.DefaultKeyMap(), 80, 24)
	m = loaded(t, m, m.Init())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Delete Ann?")

	*m.confirmDelete = true
	cmd := m.deleteContact(m.pending.ID)
	msg, ok := cmd().(ContactDeletedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, c.ID, msg.ID)

	n, err := s.CountContacts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEmptyStateMentionsImport(t *testing.T) {
	m := New(testutil.NewTestStore(t), keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(ContactsLoadedMsg{Contacts: []model.Contact{}})
	assert.Contains(t, m.View(), "import")
}
