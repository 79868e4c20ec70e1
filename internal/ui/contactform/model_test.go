package contactform

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/contact/session"
	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/model"
)

type fakeMutator struct {
	created []map[string]string
	err     error
}

func (f *fakeMutator) CreateContact(_ context.Context, attrs map[string]string) (*model.Contact, error) {
	f.created = append(f.created, attrs)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Contact{ID: "c1", Attributes: attrs}, nil
}

func (f *fakeMutator) ModifyContact(_ context.Context, id string, _ map[string]*string) (*model.Contact, error) {
	return &model.Contact{ID: id}, f.err
}

func newForm(t *testing.T, opts session.Options) Model {
	t.Helper()
	m := New(session.New(opts), keys.DefaultKeyMap(), 100, 60)
	m.Init()
	return m
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		m, cmd = m.Update(msg)
	}
	return m, cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func tab(n int) []tea.KeyMsg {
	out := make([]tea.KeyMsg, n)
	for i := range out {
		out[i] = tea.KeyMsg{Type: tea.KeyTab}
	}
	return out
}

// focusOn tabs until the focused row edits or belongs to key.
func focusOn(t *testing.T, m Model, key string) Model {
	t.Helper()
	i := indexOfKey(m.rows, key)
	require.GreaterOrEqual(t, i, 0, "no row for %s", key)
	m, _ = press(t, m, tab(i-m.focus)...)
	require.Equal(t, i, m.focus)
	return m
}

func runSave(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	return m.Update(cmd())
}

func TestTypingUpdatesSession(t *testing.T) {
	m := newForm(t, session.Options{})
	assert.False(t, m.session.Dirty())

	m = typeText(t, m, "Jo")

	v, _ := m.session.State().Value(fields.FirstName)
	assert.Equal(t, "Jo", v)
	assert.True(t, m.session.Dirty())
	assert.Contains(t, m.View(), "New Contact *")
}

func TestAddFieldAfterFocusedEmail(t *testing.T) {
	m := newForm(t, session.Options{})
	m = focusOn(t, m, "email")
	m = typeText(t, m, "jo@example.com")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})

	vis := m.session.State().Visible()
	i := m.session.State().IndexOf("email")
	require.Less(t, i+1, len(vis))
	assert.Equal(t, "email2", vis[i+1])
	assert.Equal(t, "email2", m.focusedKey())
	assert.Equal(t, "Email 2 ▾", m.rows[m.focus].label)
}

func TestAddFieldOnPlainFieldIsRefused(t *testing.T) {
	m := newForm(t, session.Options{})
	before := m.session.State().Visible()

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})

	assert.Equal(t, before, m.session.State().Visible())
	assert.Contains(t, m.statusMsg, "cannot be repeated")
}

func TestCycleLabelKeepsValue(t *testing.T) {
	m := newForm(t, session.Options{})
	m = focusOn(t, m, "email")
	m = typeText(t, m, "jo@example.com")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Equal(t, "homeEmail", m.focusedKey())
	v, ok := m.session.State().Value("homeEmail")
	assert.True(t, ok)
	assert.Equal(t, "jo@example.com", v)
	assert.Equal(t, "jo@example.com", m.inputs["homeEmail"].Value())
}

func TestAddAndRemoveAddress(t *testing.T) {
	m := newForm(t, session.Options{})
	rows := len(m.rows)
	m = focusOn(t, m, "homeAddress")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Len(t, m.rows, rows+5)
	assert.Equal(t, "homeAddress2", m.rows[m.focus].owner)
	assert.Equal(t, "homeStreet2", m.rows[m.focus].key)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Len(t, m.rows, rows)
	assert.NotContains(t, m.session.State().Visible(), "homeAddress2")
}

func TestPickerAddsBirthday(t *testing.T) {
	m := newForm(t, session.Options{})
	m = focusOn(t, m, editor.AddMoreSentinel)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, modePickAdd, m.mode)

	m.mode = modeEdit
	for i, c := range addChoices {
		if c.label == fields.Birthday {
			m.fb.choice = i
		}
	}
	m, _ = m.completeForm(modePickAdd)

	vis := m.session.State().Visible()
	i := m.session.State().IndexOf(fields.Birthday)
	assert.Equal(t, "birthday2", vis[i+1])
}

func TestSaveWithoutNameShowsIssues(t *testing.T) {
	mut := &fakeMutator{}
	m := newForm(t, session.Options{Mutator: mut})
	m = focusOn(t, m, "email")
	m = typeText(t, m, "not-an-email")

	m, _ = runSave(t, m)
	assert.Empty(t, mut.created)
	assert.True(t, m.showIssues)

	res := m.session.Validation()
	assert.True(t, res.Has(editor.MinimumFieldsRequired))
	assert.True(t, res.Has(editor.InvalidEmail))
	assert.Equal(t, "email", m.focusedKey())
	for _, msg := range res.Messages {
		assert.Contains(t, m.View(), msg)
	}
}

func TestSaveSuccess(t *testing.T) {
	mut := &fakeMutator{}
	m := newForm(t, session.Options{Mutator: mut})
	m = typeText(t, m, "Jo")

	m, cmd := runSave(t, m)
	require.NotNil(t, cmd)
	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.Equal(t, "c1", saved.Contact.ID)
	assert.Equal(t, "Saved", m.statusMsg)
	require.Len(t, mut.created, 1)
	assert.Equal(t, "Jo", mut.created[0][fields.FirstName])
}

func TestSaveOfflineShowsModal(t *testing.T) {
	mut := &fakeMutator{}
	m := newForm(t, session.Options{Mutator: mut, Online: func() bool { return false }})
	m = typeText(t, m, "Jo")

	m, _ = runSave(t, m)
	assert.Contains(t, m.View(), "offline")
	assert.Empty(t, mut.created)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Empty(t, m.modal)
	v, _ := m.session.State().Value(fields.FirstName)
	assert.Equal(t, "Jo", v, "dismissing the modal must not edit")
}

func TestSaveNetworkFailureKeepsEdits(t *testing.T) {
	mut := &fakeMutator{err: errors.New("connection reset")}
	m := newForm(t, session.Options{Mutator: mut})
	m = typeText(t, m, "Jo")

	m, _ = runSave(t, m)
	assert.Contains(t, m.banner, "connection reset")
	assert.Contains(t, m.banner, "retry")
	v, _ := m.session.State().Value(fields.FirstName)
	assert.Equal(t, "Jo", v)
}

func TestEscClosesCleanForm(t *testing.T) {
	m := newForm(t, session.Options{})
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, ClosedMsg{}, cmd())
}

func TestEscAsksBeforeDiscarding(t *testing.T) {
	m := newForm(t, session.Options{})
	m = typeText(t, m, "Jo")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeConfirmDiscard, m.mode)

	m.mode = modeEdit
	m.fb.discard = true
	_, cmd := m.completeForm(modeConfirmDiscard)
	require.NotNil(t, cmd)
	assert.IsType(t, ClosedMsg{}, cmd())
}

func TestKeysIgnoredWhileSaving(t *testing.T) {
	mut := &fakeMutator{}
	m := newForm(t, session.Options{Mutator: mut})
	m = typeText(t, m, "Jo")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	require.True(t, m.saving)

	m = typeText(t, m, "x")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	v, _ := m.session.State().Value(fields.FirstName)
	assert.Equal(t, "Jo", v)
	assert.Equal(t, "Jo", m.inputs[fields.FirstName].Value())

	m, _ = press(t, m, tab(1)...)
	assert.Equal(t, 1, m.focus, "focus still moves")

	m, _ = m.Update(cmd())
	assert.False(t, m.saving)
	assert.False(t, m.session.Dirty())
}
