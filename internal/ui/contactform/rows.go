package contactform

import (
	"strings"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/contact/fields"
)

// row is one focusable line of the editor. Address instances span five
// rows, one per member, all owned by the instance's placeholder key.
type row struct {
	// key is the attribute the row edits; empty for sentinel rows.
	key string
	// owner is the visible-list entry the row belongs to.
	owner string
	label string
	// hint is the input placeholder.
	hint  string
	first bool
}

func (r row) sentinel() bool { return editor.IsSentinel(r.owner) }

// buildRows expands the visible list into editor rows.
func buildRows(visible []string) []row {
	var rows []row
	for _, k := range visible {
		if editor.IsSentinel(k) {
			rows = append(rows, row{owner: k, label: sentinelLabel(k), first: true})
			continue
		}
		info := fields.Classify(k)
		if info.IsPlaceholder() {
			for i, m := range fields.AddressMembers(info.Prefix, info.Position) {
				rows = append(rows, row{
					key:   m,
					owner: k,
					label: displayLabel(k),
					hint:  strings.ToLower(fields.AddressMemberNames()[i]),
					first: i == 0,
				})
			}
			continue
		}
		rows = append(rows, row{key: k, owner: k, label: displayLabel(k), hint: hintFor(info), first: true})
	}
	return rows
}

// indexOfKey returns the first row editing key or owned by key.
func indexOfKey(rows []row, key string) int {
	for i, r := range rows {
		if r.key == key || r.owner == key {
			return i
		}
	}
	return -1
}

// displayLabel renders a key for the label column: workEmail2 is shown as
// "Work email 2".
func displayLabel(key string) string {
	info := fields.Classify(key)
	name := fields.Title(info.Label)
	if info.Position > 1 {
		name += " " + fields.SuffixString(info.Position)
	}
	if info.HasLabelChoice {
		name += " ▾"
	}
	return name
}

func hintFor(info fields.FieldInfo) string {
	switch info.Widget {
	case fields.WidgetEmail:
		return "name@example.com"
	case fields.WidgetTel:
		return "+1 555 0100"
	case fields.WidgetDate:
		return "YYYY-MM-DD"
	}
	if info.Group == fields.GroupIM {
		return "account id"
	}
	return ""
}

func sentinelLabel(key string) string {
	if key == editor.CertificateSentinel {
		return "Certificate"
	}
	return "+ Add field"
}

// addChoice is one entry of the add-field picker.
type addChoice struct {
	title string
	label string
	group fields.Group
}

var addChoices = []addChoice{
	{"Email", "email", fields.GroupEmail},
	{"Phone", "mobile", fields.GroupPhone},
	{"Instant messenger", "im", fields.GroupIM},
	{"Home address", "homeAddress", fields.GroupAddress},
	{"Work address", "workAddress", fields.GroupAddress},
	{"Birthday", fields.Birthday, fields.GroupSingle},
	{"Anniversary", fields.Anniv, fields.GroupSingle},
}

// lastOfGroup returns the last visible key of group g so a field added from
// the picker lands next to its siblings. An empty result inserts before the
// sentinels.
func lastOfGroup(visible []string, label string, g fields.Group) string {
	last := ""
	for _, k := range visible {
		if editor.IsSentinel(k) {
			continue
		}
		info := fields.Classify(k)
		if info.Group != g {
			continue
		}
		if g == fields.GroupSingle && info.Label != label {
			continue
		}
		last = k
	}
	return last
}
