package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/contact/fields"
)

func TestEncodeDecodeIM(t *testing.T) {
	attrs := map[string]string{
		"jabber": "jo@jabber.org",
		"im2":    "jo",
		"yahoo":  "ymsgr://jo_y",
		"email":  "jo@x.com",
		"skype":  "",
	}

	encoded := EncodeIM(attrs)
	assert.Equal(t, map[string]string{
		"jabber": "xmpp://jo@jabber.org",
		"im2":    "im://jo",
		"yahoo":  "ymsgr://jo_y",
		"email":  "jo@x.com",
		"skype":  "",
	}, encoded)

	decoded := DecodeIM(encoded)
	assert.Equal(t, "jo@jabber.org", decoded["jabber"])
	assert.Equal(t, "jo", decoded["im2"])
	assert.Equal(t, "jo_y", decoded["yahoo"])
	assert.Equal(t, "jo@x.com", decoded["email"])

	assert.Equal(t, "http://example.com", DecodeIM(map[string]string{"im": "http://example.com"})["im"])
}

func TestBuildPayloadCreate(t *testing.T) {
	s := NewState(map[string]string{
		"firstName": "Jo",
		"email":     "a@x.com",
		"email3":    "b@x.com",
		"jabber":    "jo@jabber.org",
	})

	p := BuildPayload(nil, s)
	require.True(t, p.IsCreate())
	assert.Nil(t, p.Changes)
	assert.Equal(t, map[string]string{
		"firstName": "Jo",
		"email":     "a@x.com",
		"email2":    "b@x.com",
		"jabber":    "xmpp://jo@jabber.org",
	}, p.Create)
}

func TestBuildPayloadChanges(t *testing.T) {
	original := map[string]string{
		"firstName": "Jo",
		"company":   "Acme",
		"email":     "a@x.com",
		"email2":    "b@x.com",
		"skype":     "skype://jo",
	}
	s := NewState(DecodeIM(original))

	s, err := s.RemoveField(RemoveOp{AttributeKey: "email", Group: fields.GroupEmail})
	require.NoError(t, err)
	s, err = s.SetValue("company", "")
	require.NoError(t, err)

	p := BuildPayload(original, s)
	require.False(t, p.IsCreate())
	assert.Len(t, p.Changes, 3)
	require.NotNil(t, p.Changes["email"])
	assert.Equal(t, "b@x.com", *p.Changes["email"])
	assert.Contains(t, p.Changes, "email2")
	assert.Nil(t, p.Changes["email2"])
	assert.Contains(t, p.Changes, "company")
	assert.Nil(t, p.Changes["company"])
}

func TestBuildPayloadNoChanges(t *testing.T) {
	original := map[string]string{"firstName": "Jo", "im": "im://jo"}
	p := BuildPayload(original, NewState(DecodeIM(original)))
	assert.True(t, p.Empty())
}
