package detail

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/model"
)

type fakeParser struct {
	res *model.CertResult
	err error
}

func (f fakeParser) Handle(_ context.Context, _ model.CertRequest) (*model.CertResult, error) {
	return f.res, f.err
}

func sample() model.Contact {
	return model.Contact{
		ID: "c1",
		Attributes: map[string]string{
			"firstName":   "Jo",
			"lastName":    "Doe",
			"company":     "Acme",
			"jobTitle":    "Engineer",
			"workEmail":   "jo@acme.test",
			"email2":      "jo@home.test",
			"mobile":      "+1 555 0100",
			"jabber":      "xmpp://jo@chat.test",
			"homeStreet":  "1 Main St",
			"homeCity":    "Springfield",
			"birthday":    "1990-04-01",
			"notes":       "met at conf",
			"certificate": "-----BEGIN CERTIFICATE-----",
		},
	}
}

func TestEntriesOrderAndShape(t *testing.T) {
	var got []string
	for _, e := range entries(sample().Attributes) {
		got = append(got, e.label+"="+e.value)
	}
	assert.Equal(t, []string{
		"Email 2=jo@home.test",
		"Work email=jo@acme.test",
		"Mobile=+1 555 0100",
		"Jabber=jo@chat.test",
		"Home address=1 Main St, Springfield",
		"Birthday=1990-04-01",
		"Notes=met at conf",
	}, got)
}

func TestCardShowsCertificate(t *testing.T) {
	res := &model.CertResult{Certificate: model.Certificate{
		Email:    "jo@acme.test",
		NotAfter: time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
	}}
	m := New(fakeParser{res: res}, keys.DefaultKeyMap(), 100, 40)
	m.SetContact(sample())

	view := m.View()
	assert.Contains(t, view, "Jo Doe")
	assert.Contains(t, view, "Engineer at Acme")
	assert.Contains(t, view, "checking")

	cmd := m.Init()
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())
	assert.Contains(t, m.View(), "jo@acme.test until 2030-01-02")
}

func TestUnreadableCertificate(t *testing.T) {
	m := New(fakeParser{err: errors.New("bad pem")}, keys.DefaultKeyMap(), 100, 40)
	m.SetContact(sample())
	m, _ = m.Update(m.Init()())
	assert.Contains(t, m.View(), "unreadable: bad pem")
}

func TestStaleCertificateIgnored(t *testing.T) {
	m := New(fakeParser{}, keys.DefaultKeyMap(), 100, 40)
	m.SetContact(sample())
	m, _ = m.Update(CertLoadedMsg{ContactID: "other", Err: errors.New("x")})
	assert.NotContains(t, m.View(), "unreadable")
}

func TestNoCertificateSkipsParsing(t *testing.T) {
	c := sample()
	delete(c.Attributes, "certificate")
	m := New(fakeParser{}, keys.DefaultKeyMap(), 100, 40)
	m.SetContact(c)
	assert.Nil(t, m.Init())
}

func TestKeys(t *testing.T) {
	m := New(nil, keys.DefaultKeyMap(), 100, 40)
	m.SetContact(sample())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.NotNil(t, cmd)
	edit, ok := cmd().(EditMsg)
	require.True(t, ok)
	assert.Equal(t, "c1", edit.Contact.ID)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	require.NotNil(t, cmd)
	assert.IsType(t, ComposeMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, BackMsg{}, cmd())
}
