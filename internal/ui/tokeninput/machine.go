// Package tokeninput is the recipient field used when composing mail: typed
// text turns into address tokens, with suggestions drawn from contacts and
// harvested correspondents.
package tokeninput

import (
	"errors"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/addressbook/internal/model"
)

// ErrInvalidAddress is returned when committed text does not parse as an
// address.
var ErrInvalidAddress = errors.New("invalid address")

// Token is one committed recipient.
type Token struct {
	Name    string
	Address string
}

// String renders the token in RFC 5322 form.
func (t Token) String() string {
	a := mail.Address{Name: t.Name, Address: t.Address}
	return a.String()
}

// Machine holds token input state. It has no terminal dependencies; the
// Bubble Tea Model drives it from key events.
type Machine struct {
	tokens      []Token
	draft       string
	suggestions []model.Suggestion
	highlight   int
}

// NewMachine returns an empty machine.
func NewMachine() Machine {
	return Machine{highlight: -1}
}

// Tokens returns a copy of the committed tokens.
func (m Machine) Tokens() []Token {
	out := make([]Token, len(m.tokens))
	copy(out, m.tokens)
	return out
}

// Draft is the uncommitted text.
func (m Machine) Draft() string { return m.draft }

// Suggestions returns the open suggestion list.
func (m Machine) Suggestions() []model.Suggestion { return m.suggestions }

// Highlight is the index of the highlighted suggestion, or -1.
func (m Machine) Highlight() int { return m.highlight }

// Open reports whether suggestions are showing.
func (m Machine) Open() bool { return len(m.suggestions) > 0 }

// Type replaces the draft text. Suggestions are closed when the draft is
// emptied; otherwise they stay until SetSuggestions answers the new query.
func (m *Machine) Type(text string) {
	m.draft = text
	if strings.TrimSpace(text) == "" {
		m.Dismiss()
	}
}

// SetSuggestions installs suggestions for query. Answers for a stale query
// are ignored, as are addresses already present as tokens.
func (m *Machine) SetSuggestions(query string, items []model.Suggestion) {
	if query != strings.TrimSpace(m.draft) || query == "" {
		return
	}
	m.suggestions = m.suggestions[:0:0]
	for _, s := range items {
		if !m.has(s.Address) {
			m.suggestions = append(m.suggestions, s)
		}
	}
	m.highlight = -1
	if len(m.suggestions) > 0 {
		m.highlight = 0
	}
}

// Next moves the highlight down, wrapping to the top.
func (m *Machine) Next() {
	if n := len(m.suggestions); n > 0 {
		m.highlight = (m.highlight + 1) % n
	}
}

// Prev moves the highlight up, wrapping to the bottom.
func (m *Machine) Prev() {
	if n := len(m.suggestions); n > 0 {
		m.highlight = (m.highlight - 1 + n) % n
	}
}

// Dismiss closes the suggestion list and keeps the draft.
func (m *Machine) Dismiss() {
	m.suggestions = nil
	m.highlight = -1
}

// Commit turns the highlighted suggestion, or else the draft, into a token.
// It reports whether a token was added. A duplicate clears the draft without
// adding; an unparsable draft is kept and ErrInvalidAddress returned.
func (m *Machine) Commit() (bool, error) {
	var tok Token
	switch {
	case m.highlight >= 0 && m.highlight < len(m.suggestions):
		s := m.suggestions[m.highlight]
		tok = Token{Name: s.Name, Address: s.Address}
	default:
		text := strings.TrimSpace(strings.TrimRight(m.draft, ", "))
		if text == "" {
			return false, nil
		}
		addr, err := mail.ParseAddress(text)
		if err != nil {
			return false, ErrInvalidAddress
		}
		tok = Token{Name: addr.Name, Address: addr.Address}
	}

	m.draft = ""
	m.Dismiss()
	if m.has(tok.Address) {
		return false, nil
	}
	m.tokens = append(m.tokens[:len(m.tokens):len(m.tokens)], tok)
	return true, nil
}

// Backspace removes the last token when the draft is empty and reports
// whether it did.
func (m *Machine) Backspace() bool {
	if m.draft != "" || len(m.tokens) == 0 {
		return false
	}
	m.Remove(len(m.tokens) - 1)
	return true
}

// Remove deletes the token at i. Out of range indexes are ignored.
func (m *Machine) Remove(i int) {
	if i < 0 || i >= len(m.tokens) {
		return
	}
	next := make([]Token, 0, len(m.tokens)-1)
	next = append(next, m.tokens[:i]...)
	m.tokens = append(next, m.tokens[i+1:]...)
}

// Add parses a comma separated address list into tokens, skipping
// duplicates.
func (m *Machine) Add(list string) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return ErrInvalidAddress
	}
	for _, a := range addrs {
		if !m.has(a.Address) {
			m.tokens = append(m.tokens[:len(m.tokens):len(m.tokens)], Token{Name: a.Name, Address: a.Address})
		}
	}
	return nil
}

// Addresses returns the tokens as mail addresses.
func (m Machine) Addresses() []*mail.Address {
	out := make([]*mail.Address, len(m.tokens))
	for i, t := range m.tokens {
		out[i] = &mail.Address{Name: t.Name, Address: t.Address}
	}
	return out
}

func (m Machine) has(address string) bool {
	for _, t := range m.tokens {
		if strings.EqualFold(t.Address, address) {
			return true
		}
	}
	return false
}
