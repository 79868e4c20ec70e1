// Package contactform is the contact editor view. Every keystroke goes
// through the edit session's reducers; the view only mirrors its state.
package contactform

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/contact/session"
	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/model"
)

// ClosedMsg signals the parent to close the editor.
type ClosedMsg struct{}

// SavedMsg is sent after the contact was persisted.
type SavedMsg struct {
	Contact *model.Contact
}

type savedResultMsg struct {
	contact *model.Contact
	err     error
}

type certResultMsg struct {
	res *model.CertResult
	err error
}

type photoResultMsg struct {
	id  string
	err error
}

type formMode int

const (
	modeEdit formMode = iota
	modePickAdd
	modeCert
	modePhoto
	modeConfirmDiscard
)

// formBindings holds huh form values on the heap so copies of the Model
// share them.
type formBindings struct {
	choice    int
	certData  string
	photoPath string
	discard   bool
}

// Model is the Bubble Tea model for the contact editor.
type Model struct {
	session *session.Session
	keys    *keys.KeyMap

	rows   []row
	inputs map[string]textinput.Model
	focus  int

	mode formMode
	form *huh.Form
	fb   *formBindings

	showIssues bool
	banner     string
	modal      string
	statusMsg  string
	saving     bool

	width  int
	height int
}

// New creates an editor over s.
func New(s *session.Session, k *keys.KeyMap, width, height int) Model {
	m := Model{
		session: s,
		keys:    k,
		inputs:  make(map[string]textinput.Model),
		fb:      &formBindings{},
		width:   width,
		height:  height,
	}
	m.sync("")
	return m
}

// Init focuses the first field and parses any stored certificate.
func (m Model) Init() tea.Cmd {
	sess := m.session
	return tea.Batch(m.focusCmd(), func() tea.Msg {
		if err := sess.LoadCertificate(context.Background()); err != nil {
			return certResultMsg{err: err}
		}
		return nil
	})
}

// Session returns the edit session behind the view.
func (m Model) Session() *session.Session { return m.session }

// Update handles messages for the editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m.updateActiveForm(msg)

	case savedResultMsg:
		return m.handleSaved(msg)

	case certResultMsg:
		if msg.err != nil {
			m.statusMsg = "Certificate: " + msg.err.Error()
		} else if msg.res != nil {
			m.statusMsg = "Certificate attached for " + msg.res.Certificate.Email
		}
		m.revalidate()
		m.sync(m.focusedKey())
		return m, nil

	case photoResultMsg:
		if msg.err != nil {
			m.statusMsg = "Photo: " + msg.err.Error()
		} else {
			m.statusMsg = "Photo uploaded"
		}
		return m, nil

	case tea.KeyMsg:
		if m.modal != "" {
			m.modal = ""
			return m, nil
		}
		if m.mode != modeEdit {
			return m.updateActiveForm(msg)
		}
		return m.handleEditKey(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleEditKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.saving {
		return m.handleSavingKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Save):
		return m.save()

	case key.Matches(msg, m.keys.Back):
		if m.session.Dirty() {
			m.fb.discard = false
			return m.openForm(modeConfirmDiscard, m.buildDiscardForm())
		}
		return m, func() tea.Msg { return ClosedMsg{} }

	case key.Matches(msg, m.keys.AddField):
		return m.addAfterFocus()

	case key.Matches(msg, m.keys.RemoveField):
		return m.removeFocused()

	case key.Matches(msg, m.keys.CycleLabel):
		return m.cycleFocused()

	case key.Matches(msg, m.keys.Photo):
		m.fb.photoPath = ""
		return m.openForm(modePhoto, m.buildPhotoForm())

	case key.Matches(msg, m.keys.NextField):
		cmd := m.move(1)
		return m, cmd

	case key.Matches(msg, m.keys.PrevField):
		cmd := m.move(-1)
		return m, cmd

	case msg.String() == "enter":
		r, ok := m.focusedRow()
		if ok && r.owner == editor.AddMoreSentinel {
			m.fb.choice = 0
			return m.openForm(modePickAdd, m.buildAddForm())
		}
		if ok && r.owner == editor.CertificateSentinel {
			m.fb.certData = ""
			return m.openForm(modeCert, m.buildCertForm())
		}
		cmd := m.move(1)
		return m, cmd
	}

	return m.updateInput(msg)
}

// handleSavingKey only lets focus move while a save is running so no edit
// can race the stored record.
func (m Model) handleSavingKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextField):
		cmd := m.move(1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevField):
		cmd := m.move(-1)
		return m, cmd
	}
	return m, nil
}

// updateInput feeds msg to the focused input and pushes a changed value
// into the session.
func (m Model) updateInput(msg tea.Msg) (Model, tea.Cmd) {
	r, ok := m.focusedRow()
	if !ok || r.sentinel() {
		return m, nil
	}
	in := m.inputs[r.key]
	before := in.Value()
	var cmd tea.Cmd
	in, cmd = in.Update(msg)
	m.inputs[r.key] = in

	if after := in.Value(); after != before {
		err := m.session.Apply(func(s editor.State) (editor.State, error) {
			return s.SetValue(r.key, after)
		})
		if err != nil {
			m.statusMsg = err.Error()
		}
		m.revalidate()
	}
	return m, cmd
}

func (m Model) addAfterFocus() (Model, tea.Cmd) {
	r, ok := m.focusedRow()
	if !ok || r.sentinel() {
		return m, nil
	}
	info := fields.Classify(r.owner)
	if !info.SupportsAddRemove {
		m.statusMsg = displayLabel(r.owner) + " cannot be repeated"
		return m, nil
	}
	return m.add(editor.AddOp{AfterKey: r.owner, NewBaseName: info.Label, Group: info.Group})
}

func (m Model) add(op editor.AddOp) (Model, tea.Cmd) {
	var added string
	err := m.session.Apply(func(s editor.State) (editor.State, error) {
		next, key, err := s.AddField(op)
		added = key
		return next, err
	})
	if err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}
	m.sync(added)
	return m, m.focusCmd()
}

func (m Model) removeFocused() (Model, tea.Cmd) {
	r, ok := m.focusedRow()
	if !ok {
		return m, nil
	}
	if r.owner == editor.CertificateSentinel {
		if err := m.session.RemoveCertificate(); err != nil {
			m.statusMsg = err.Error()
			return m, nil
		}
		m.statusMsg = "Certificate removed"
		m.revalidate()
		return m, nil
	}
	if r.sentinel() || !fields.Classify(r.owner).SupportsAddRemove {
		return m, nil
	}

	focus := m.focus
	err := m.session.Apply(func(s editor.State) (editor.State, error) {
		return s.RemoveField(editor.RemoveOp{AttributeKey: r.owner, Group: fields.Classify(r.owner).Group})
	})
	if err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}
	m.sync("")
	m.focus = min(focus, len(m.rows)-1)
	m.revalidate()
	return m, m.focusCmd()
}

func (m Model) cycleFocused() (Model, tea.Cmd) {
	r, ok := m.focusedRow()
	if !ok || r.sentinel() || !fields.Classify(r.owner).HasLabelChoice {
		return m, nil
	}
	var moved string
	err := m.session.Apply(func(s editor.State) (editor.State, error) {
		next, key, err := s.CycleLabel(r.owner)
		moved = key
		return next, err
	})
	if err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}
	m.sync(moved)
	m.revalidate()
	return m, m.focusCmd()
}

func (m Model) save() (Model, tea.Cmd) {
	if m.saving {
		return m, nil
	}
	m.saving = true
	m.banner = ""
	m.statusMsg = "Saving…"
	sess := m.session
	return m, func() tea.Msg {
		c, err := sess.Save(context.Background())
		return savedResultMsg{contact: c, err: err}
	}
}

func (m Model) handleSaved(msg savedResultMsg) (Model, tea.Cmd) {
	m.saving = false
	m.statusMsg = ""
	if msg.err == nil {
		m.showIssues = false
		m.statusMsg = "Saved"
		m.sync(m.focusedKey())
		c := msg.contact
		return m, func() tea.Msg { return SavedMsg{Contact: c} }
	}

	switch {
	case session.IsKind(msg.err, session.OfflineBlocked):
		m.modal = "You are offline.\nSaving is disabled until the connection returns."
	case session.IsKind(msg.err, session.NetworkSaveFailure):
		var saveErr *session.SaveError
		cause := msg.err
		if errors.As(msg.err, &saveErr) && saveErr.Err != nil {
			cause = saveErr.Err
		}
		m.banner = "Could not save contact: " + cause.Error() + " (ctrl+s to retry)"
	case session.IsKind(msg.err, session.MissingRequiredFields),
		session.IsKind(msg.err, session.InvalidEmailFormat):
		m.showIssues = true
		m.focusFirstIssue()
		return m, m.focusCmd()
	case errors.Is(msg.err, session.ErrSaveInProgress):
	default:
		m.banner = msg.err.Error()
	}
	return m, nil
}

// revalidate refreshes inline issues once a failed save has shown them.
func (m *Model) revalidate() {
	if m.showIssues {
		m.session.Validate()
	}
}

func (m *Model) focusFirstIssue() {
	res := m.session.Validation()
	for _, f := range res.Fields {
		if i := indexOfKey(m.rows, f); i >= 0 {
			m.focus = i
			return
		}
	}
}

// sync rebuilds rows and inputs from the session and moves focus to
// focusKey when it is set.
func (m *Model) sync(focusKey string) {
	st := m.session.State()
	m.rows = buildRows(st.Visible())

	keep := make(map[string]bool, len(m.rows))
	for _, r := range m.rows {
		if r.key == "" {
			continue
		}
		keep[r.key] = true
		v, _ := st.Value(r.key)
		in, ok := m.inputs[r.key]
		if !ok {
			in = textinput.New()
			in.Prompt = ""
			in.Placeholder = r.hint
			in.Width = m.inputWidth()
		}
		if in.Value() != v {
			in.SetValue(v)
		}
		m.inputs[r.key] = in
	}
	for k := range m.inputs {
		if !keep[k] {
			delete(m.inputs, k)
		}
	}

	if focusKey != "" {
		if i := indexOfKey(m.rows, focusKey); i >= 0 {
			m.focus = i
		}
	}
	if m.focus >= len(m.rows) {
		m.focus = len(m.rows) - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
}

func (m *Model) move(delta int) tea.Cmd {
	if len(m.rows) == 0 {
		return nil
	}
	m.focus = (m.focus + delta + len(m.rows)) % len(m.rows)
	return m.focusCmd()
}

// focusCmd focuses the input of the focused row and blurs the rest.
func (m *Model) focusCmd() tea.Cmd {
	var cmd tea.Cmd
	for i, r := range m.rows {
		if r.key == "" {
			continue
		}
		in := m.inputs[r.key]
		if i == m.focus {
			cmd = in.Focus()
		} else {
			in.Blur()
		}
		m.inputs[r.key] = in
	}
	return cmd
}

func (m Model) focusedRow() (row, bool) {
	if m.focus < 0 || m.focus >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.focus], true
}

func (m Model) focusedKey() string {
	r, _ := m.focusedRow()
	if r.key != "" {
		return r.key
	}
	return r.owner
}

// === Forms ===

func (m Model) openForm(mode formMode, f *huh.Form) (Model, tea.Cmd) {
	m.mode = mode
	m.form = f
	return m, m.form.Init()
}

func (m Model) buildAddForm() *huh.Form {
	opts := make([]huh.Option[int], len(addChoices))
	for i, c := range addChoices {
		opts[i] = huh.NewOption(c.title, i)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Add field").
				Options(opts...).
				Value(&m.fb.choice),
		),
	).WithWidth(m.formWidth())
}

func (m Model) buildCertForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Certificate").
				Description("Paste a PEM or base64 DER S/MIME certificate.").
				Value(&m.fb.certData).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("certificate data is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth())
}

func (m Model) buildPhotoForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Photo").
				Placeholder("path to an image file").
				Value(&m.fb.photoPath).
				Validate(func(s string) error {
					if _, err := os.Stat(strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("file not found")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth())
}

func (m Model) buildDiscardForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Discard unsaved changes?").
				Affirmative("Discard").
				Negative("Keep editing").
				Value(&m.fb.discard),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.mode == modeEdit || m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		m.mode = modeEdit
		return m, m.focusCmd()
	case huh.StateCompleted:
		mode := m.mode
		m.mode = modeEdit
		return m.completeForm(mode)
	}
	return m, cmd
}

func (m Model) completeForm(mode formMode) (Model, tea.Cmd) {
	sess := m.session
	switch mode {
	case modePickAdd:
		c := addChoices[m.fb.choice]
		after := lastOfGroup(sess.State().Visible(), c.label, c.group)
		return m.add(editor.AddOp{AfterKey: after, NewBaseName: c.label, Group: c.group})

	case modeCert:
		data := m.fb.certData
		return m, func() tea.Msg {
			res, err := sess.AttachCertificate(context.Background(), data)
			return certResultMsg{res: res, err: err}
		}

	case modePhoto:
		path := strings.TrimSpace(m.fb.photoPath)
		return m, func() tea.Msg {
			data, err := os.ReadFile(path)
			if err != nil {
				return photoResultMsg{err: err}
			}
			id, err := sess.SetPhoto(context.Background(), base64.StdEncoding.EncodeToString(data))
			return photoResultMsg{id: id, err: err}
		}

	case modeConfirmDiscard:
		if m.fb.discard {
			return m, func() tea.Msg { return ClosedMsg{} }
		}
	}
	return m, m.focusCmd()
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	for k, in := range m.inputs {
		in.Width = m.inputWidth()
		m.inputs[k] = in
	}
}

func (m Model) inputWidth() int {
	w := m.width - 24
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
