package model

import "time"

// Correspondent is an address seen in harvested mail headers.
type Correspondent struct {
	Address   string    `json:"address" db:"address"`
	Name      string    `json:"name" db:"name"`
	SeenCount int       `json:"seen_count" db:"seen_count"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
}

// Suggestion is one autocomplete candidate for an address field.
type Suggestion struct {
	Name    string
	Address string

	// FromContact is true when the address belongs to a saved contact rather
	// than only a harvested correspondent.
	FromContact bool
}

// String renders the suggestion as an RFC 5322 mailbox.
func (s Suggestion) String() string {
	if s.Name == "" {
		return s.Address
	}
	return s.Name + " <" + s.Address + ">"
}
