// Package fields holds the contact attribute taxonomy: which attribute keys
// exist, how they group under a shared label dropdown, and how repeated
// instances are numbered with positional suffixes (email, email2, email3).
package fields

import (
	"strconv"
	"strings"
)

// Group is a category of interchangeable field labels sharing one dropdown.
type Group int

const (
	GroupNone Group = iota
	GroupEmail
	GroupPhone
	GroupIM
	GroupAddress
	// GroupSingle covers repeatable fields without a label choice
	// (birthday, anniversary).
	GroupSingle
)

// String returns the lowercase group name.
func (g Group) String() string {
	switch g {
	case GroupEmail:
		return "email"
	case GroupPhone:
		return "phone"
	case GroupIM:
		return "im"
	case GroupAddress:
		return "address"
	case GroupSingle:
		return "single"
	default:
		return "none"
	}
}

// Widget is the input control a field renders with.
type Widget int

const (
	WidgetText Widget = iota
	WidgetEmail
	WidgetTel
	WidgetDate
	WidgetTextArea
	// WidgetDropdown marks rows that are only a label selector, such as the
	// address placeholder row heading its five member inputs.
	WidgetDropdown
)

// String returns the widget name.
func (w Widget) String() string {
	switch w {
	case WidgetEmail:
		return "email"
	case WidgetTel:
		return "tel"
	case WidgetDate:
		return "date"
	case WidgetTextArea:
		return "textarea"
	case WidgetDropdown:
		return "dropdown"
	default:
		return "text"
	}
}

// Address prefixes.
const (
	PrefixHome = "home"
	PrefixWork = "work"
)

var groupLabels = map[Group][]string{
	GroupEmail:   {"email", "homeEmail", "workEmail", "otherEmail"},
	GroupPhone:   {"mobile", "phone", "homePhone", "workPhone", "pager", "fax"},
	GroupIM:      {"im", "aim", "jabber", "skype", "icq", "yahoo"},
	GroupAddress: {"homeAddress", "workAddress"},
}

// repeatable lists the fields that support add/remove without a dropdown.
var repeatable = []string{"birthday", "anniversary"}

var addressMembers = []string{"Street", "City", "State", "Postal", "Country"}

// imProtocols maps an IM label to the URI scheme its values are stored under.
var imProtocols = map[string]string{
	"im":     "im",
	"aim":    "aim",
	"jabber": "xmpp",
	"skype":  "skype",
	"icq":    "icq",
	"yahoo":  "ymsgr",
}

// Plain single-instance fields the editor knows about.
const (
	FirstName = "firstName"
	LastName  = "lastName"
	Nickname  = "nickname"
	Company   = "company"
	JobTitle  = "jobTitle"
	Website   = "website"
	Notes     = "notes"
	Image     = "image"
	Birthday  = "birthday"
	Anniv     = "anniversary"

	// Certificate holds the attached S/MIME certificate as PEM.
	Certificate = "certificate"
)

// Labels returns the ordered label choices of g, or nil for groups without a
// dropdown.
func Labels(g Group) []string {
	labels := groupLabels[g]
	if labels == nil {
		return nil
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}

// LabelIndex returns the position of label within its group's dropdown, or
// -1 when the label has no dropdown.
func LabelIndex(label string) int {
	for _, labels := range groupLabels {
		for i, l := range labels {
			if l == label {
				return i
			}
		}
	}
	return -1
}

// titles are the human names of labels.
var titles = map[string]string{
	FirstName:     "First name",
	LastName:      "Last name",
	Nickname:      "Nickname",
	Company:       "Company",
	JobTitle:      "Job title",
	Website:       "Website",
	Notes:         "Notes",
	Birthday:      "Birthday",
	Anniv:         "Anniversary",
	"email":       "Email",
	"homeEmail":   "Home email",
	"workEmail":   "Work email",
	"otherEmail":  "Other email",
	"mobile":      "Mobile",
	"phone":       "Phone",
	"homePhone":   "Home phone",
	"workPhone":   "Work phone",
	"pager":       "Pager",
	"fax":         "Fax",
	"im":          "IM",
	"aim":         "AIM",
	"jabber":      "Jabber",
	"skype":       "Skype",
	"icq":         "ICQ",
	"yahoo":       "Yahoo",
	"homeAddress": "Home address",
	"workAddress": "Work address",
}

// Title returns the human name of a label, or the label itself when it has
// none.
func Title(label string) string {
	if t, ok := titles[label]; ok {
		return t
	}
	return label
}

// GroupOf returns the group a label belongs to.
func GroupOf(label string) Group {
	for g, labels := range groupLabels {
		for _, l := range labels {
			if l == label {
				return g
			}
		}
	}
	if isRepeatable(label) {
		return GroupSingle
	}
	return GroupNone
}

// IMProtocol returns the URI scheme used for values of an IM label.
func IMProtocol(label string) (string, bool) {
	p, ok := imProtocols[label]
	return p, ok
}

// IMLabelForProtocol is the inverse of IMProtocol.
func IMLabelForProtocol(protocol string) (string, bool) {
	protocol = strings.ToLower(protocol)
	for label, p := range imProtocols {
		if p == protocol {
			return label, true
		}
	}
	return "", false
}

// AddressMemberNames returns the five member names of an address instance.
func AddressMemberNames() []string {
	out := make([]string, len(addressMembers))
	copy(out, addressMembers)
	return out
}

// AddressMembers returns the five concrete attribute keys of the address
// instance identified by prefix and position.
func AddressMembers(prefix string, position int) []string {
	keys := make([]string, len(addressMembers))
	for i, m := range addressMembers {
		keys[i] = FormatKey(prefix+m, position)
	}
	return keys
}

// AddressPlaceholder returns the visible-list key that stands for an address
// instance, e.g. "workAddress2".
func AddressPlaceholder(prefix string, position int) string {
	return FormatKey(prefix+"Address", position)
}

// SuffixString renders a position as a key suffix. Position 1 has no suffix.
func SuffixString(position int) string {
	if position <= 1 {
		return ""
	}
	return strconv.Itoa(position)
}

// FormatKey joins a non-suffixed name with a position.
func FormatKey(name string, position int) string {
	return name + SuffixString(position)
}

// SplitSuffix separates the trailing positional suffix from key. Only values
// of 2 or more written without a leading zero count as suffixes; anything
// else is treated as part of the name and reported as position 1.
func SplitSuffix(key string) (name string, position int) {
	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	if i == len(key) || i == 0 || key[i] == '0' {
		return key, 1
	}
	n, err := strconv.Atoi(key[i:])
	if err != nil || n < 2 {
		return key, 1
	}
	return key[:i], n
}

func isRepeatable(name string) bool {
	for _, r := range repeatable {
		if r == name {
			return true
		}
	}
	return false
}

// splitAddressMember reports whether name is a home/work address member key
// such as "homeStreet".
func splitAddressMember(name string) (prefix, member string, ok bool) {
	for _, p := range []string{PrefixHome, PrefixWork} {
		rest, found := strings.CutPrefix(name, p)
		if !found {
			continue
		}
		for _, m := range addressMembers {
			if rest == m {
				return p, m, true
			}
		}
	}
	return "", "", false
}
