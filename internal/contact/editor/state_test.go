package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/contact/fields"
)

func TestNewStateVisibleOrder(t *testing.T) {
	s := NewState(map[string]string{
		"email":       "a@x.com",
		"workEmail":   "b@x.com",
		"email3":      "c@x.com",
		"homeStreet2": "1 Main St",
		"workPhone":   "555",
	})

	assert.Equal(t, []string{
		"firstName", "lastName", "nickname", "company", "jobTitle",
		"email", "email3", "workEmail",
		"workPhone",
		"im",
		"homeAddress2",
		"website", "birthday", "anniversary", "notes",
		AddMoreSentinel, CertificateSentinel,
	}, s.Visible())

	for _, m := range fields.AddressMembers(fields.PrefixHome, 2) {
		_, ok := s.Value(m)
		assert.True(t, ok, "missing member %s", m)
	}
	v, _ := s.Value("homeStreet2")
	assert.Equal(t, "1 Main St", v)
	require.NoError(t, s.CheckConsistency())
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState(nil)

	for _, k := range []string{"email", "mobile", "im", "homeAddress", "birthday", "anniversary"} {
		assert.NotEqual(t, -1, s.IndexOf(k), "expected default %s", k)
	}
	attrs := s.Attributes()
	assert.Equal(t, "", attrs["homeStreet"])
	assert.Equal(t, "", attrs["email"])
	_, hasPlaceholder := attrs["homeAddress"]
	assert.False(t, hasPlaceholder)
	require.NoError(t, s.CheckConsistency())
}

func TestCheckConsistencyDetectsDrift(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{"visible without attribute", State{attrs: map[string]string{}, visible: []string{"email"}}},
		{"duplicate visible key", State{attrs: map[string]string{"email": ""}, visible: []string{"email", "email"}}},
		{"populated but hidden", State{attrs: map[string]string{"email2": "a@x.com"}, visible: []string{}}},
		{"address member listed", State{attrs: map[string]string{"homeStreet": ""}, visible: []string{"homeStreet"}}},
		{"address missing member", State{attrs: map[string]string{"homeStreet": "x"}, visible: []string{"homeAddress"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.state.CheckConsistency())
		})
	}
}

func TestSetValue(t *testing.T) {
	s := NewState(map[string]string{"firstName": "Jo"})

	next, err := s.SetValue("email", "jo@x.com")
	require.NoError(t, err)
	v, _ := next.Value("email")
	assert.Equal(t, "jo@x.com", v)

	old, _ := s.Value("email")
	assert.Equal(t, "", old, "receiver must not change")

	_, err = s.SetValue("email7", "x")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	_, err = s.SetValue(AddMoreSentinel, "x")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	withPhoto, err := s.SetValue(fields.Image, "blob-id")
	require.NoError(t, err)
	v, _ = withPhoto.Value(fields.Image)
	assert.Equal(t, "blob-id", v)
	require.NoError(t, withPhoto.CheckConsistency())
}
