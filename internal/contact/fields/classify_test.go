package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSuffix(t *testing.T) {
	tests := []struct {
		key      string
		name     string
		position int
	}{
		{"email", "email", 1},
		{"email2", "email", 2},
		{"workEmail13", "workEmail", 13},
		{"email1", "email1", 1},
		{"email02", "email02", 1},
		{"2", "2", 1},
		{"", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			name, pos := SplitSuffix(tt.key)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.position, pos)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		key               string
		group             Group
		base              string
		label             string
		position          int
		address           bool
		labelChoice       bool
		supportsAddRemove bool
		widget            Widget
	}{
		{"email", GroupEmail, "email", "email", 1, false, true, true, WidgetEmail},
		{"workEmail3", GroupEmail, "workEmail", "workEmail", 3, false, true, true, WidgetEmail},
		{"mobile2", GroupPhone, "mobile", "mobile", 2, false, true, true, WidgetTel},
		{"jabber", GroupIM, "jabber", "jabber", 1, false, true, true, WidgetText},
		{"homeStreet2", GroupAddress, "homeStreet", "homeAddress", 2, true, true, true, WidgetText},
		{"workCountry", GroupAddress, "workCountry", "workAddress", 1, true, true, true, WidgetText},
		{"workAddress4", GroupAddress, "workAddress", "workAddress", 4, true, true, true, WidgetDropdown},
		{"birthday", GroupSingle, "birthday", "birthday", 1, false, false, true, WidgetDate},
		{"anniversary2", GroupSingle, "anniversary", "anniversary", 2, false, false, true, WidgetDate},
		{"firstName", GroupNone, "firstName", "firstName", 1, false, false, false, WidgetText},
		{"notes", GroupNone, "notes", "notes", 1, false, false, false, WidgetTextArea},
		{"Street", GroupNone, "Street", "Street", 1, false, false, false, WidgetText},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			info := Classify(tt.key)
			assert.Equal(t, tt.group, info.Group)
			assert.Equal(t, tt.base, info.BaseName)
			assert.Equal(t, tt.label, info.Label)
			assert.Equal(t, tt.position, info.Position)
			assert.Equal(t, tt.address, info.IsAddressField)
			assert.Equal(t, tt.labelChoice, info.HasLabelChoice)
			assert.Equal(t, tt.supportsAddRemove, info.SupportsAddRemove)
			assert.Equal(t, tt.widget, info.Widget)
		})
	}
}

func TestClassifyLabelChoicesAreGroupLabels(t *testing.T) {
	info := Classify("mobile")
	assert.Equal(t, []string{"mobile", "phone", "homePhone", "workPhone", "pager", "fax"}, info.LabelChoices)

	addr := Classify("homeCity3")
	assert.Equal(t, "home", addr.Prefix)
	assert.Equal(t, "City", addr.Member)
	assert.False(t, addr.IsPlaceholder())
	assert.Equal(t, []string{"homeAddress", "workAddress"}, addr.LabelChoices)

	assert.True(t, Classify("homeAddress").IsPlaceholder())
}

func TestClassifyIsDeterministic(t *testing.T) {
	for _, key := range []string{"workPhone2", "homePostal", "im", "company"} {
		assert.Equal(t, Classify(key), Classify(key))
	}
}

func TestLabelsReturnsCopy(t *testing.T) {
	labels := Labels(GroupEmail)
	labels[0] = "changed"
	assert.Equal(t, "email", Labels(GroupEmail)[0])
	assert.Nil(t, Labels(GroupSingle))
}

func TestNextSuffix(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		existing []string
		want     string
	}{
		{"empty", "email", nil, ""},
		{"first taken", "email", []string{"email"}, "2"},
		{"contiguous", "email", []string{"email", "email2", "email3"}, "4"},
		{"gap at one", "email", []string{"email2", "email3"}, ""},
		{"gap in middle", "email", []string{"email", "email3"}, "2"},
		{"other labels ignored", "workEmail", []string{"email", "email2", "homeEmail"}, ""},
		{"address placeholders", "homeAddress", []string{"homeAddress", "workAddress", "homeAddress3"}, "2"},
		{"address members count", "workAddress", []string{"workStreet", "workCity"}, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextSuffix(tt.label, tt.existing)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, tt.existing, FormatKey(tt.label, NextPosition(tt.label, tt.existing)))
		})
	}
}

func TestAddressMembers(t *testing.T) {
	assert.Equal(t,
		[]string{"workStreet2", "workCity2", "workState2", "workPostal2", "workCountry2"},
		AddressMembers(PrefixWork, 2),
	)
	assert.Equal(t,
		[]string{"homeStreet", "homeCity", "homeState", "homePostal", "homeCountry"},
		AddressMembers(PrefixHome, 1),
	)
	assert.Equal(t, "homeAddress3", AddressPlaceholder(PrefixHome, 3))
}

func TestIMProtocol(t *testing.T) {
	p, ok := IMProtocol("jabber")
	assert.True(t, ok)
	assert.Equal(t, "xmpp", p)

	label, ok := IMLabelForProtocol("XMPP")
	assert.True(t, ok)
	assert.Equal(t, "jabber", label)

	_, ok = IMProtocol("email")
	assert.False(t, ok)
}

func TestGroupOf(t *testing.T) {
	assert.Equal(t, GroupEmail, GroupOf("otherEmail"))
	assert.Equal(t, GroupAddress, GroupOf("workAddress"))
	assert.Equal(t, GroupSingle, GroupOf("birthday"))
	assert.Equal(t, GroupNone, GroupOf("company"))
	assert.Equal(t, 3, LabelIndex("workPhone"))
	assert.Equal(t, -1, LabelIndex("company"))
}
