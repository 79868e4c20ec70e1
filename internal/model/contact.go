package model

import (
	"strings"
	"time"
)

// Contact is a stored address-book entry. All user data lives in Attributes,
// keyed by suffixed attribute names (email, email2, homeStreet2).
type Contact struct {
	// ID is the internal unique identifier for this contact.
	ID string `json:"id"`

	// Attributes holds the contact's fields as stored, with instant-messenger
	// values in protocol://id form.
	Attributes map[string]string `json:"attributes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the name shown in lists: first and last name, else
// nickname, company or primary email.
func (c Contact) DisplayName() string {
	name := strings.TrimSpace(strings.Join([]string{c.Attributes["firstName"], c.Attributes["lastName"]}, " "))
	if name != "" {
		return name
	}
	for _, k := range []string{"nickname", "company", "email", "workEmail", "homeEmail", "otherEmail"} {
		if v := strings.TrimSpace(c.Attributes[k]); v != "" {
			return v
		}
	}
	return "(unnamed)"
}

// PrimaryEmail returns the first populated unsuffixed email-group value.
func (c Contact) PrimaryEmail() string {
	for _, k := range []string{"email", "workEmail", "homeEmail", "otherEmail"} {
		if v := strings.TrimSpace(c.Attributes[k]); v != "" {
			return v
		}
	}
	return ""
}

// ContactFilter controls contact list queries.
type ContactFilter struct {
	// Query matches case-insensitively against any attribute value.
	Query  string
	Limit  int
	Offset int
}

// Blob is an uploaded binary attachment such as a contact photo.
type Blob struct {
	// ID is the hex SHA-256 of Data.
	ID        string    `json:"id"`
	MimeType  string    `json:"mime_type"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
