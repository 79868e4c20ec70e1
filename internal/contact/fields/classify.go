package fields

import "strings"

// FieldInfo describes an attribute key as the editor sees it.
type FieldInfo struct {
	// Key is the raw attribute key that was classified.
	Key string

	// BaseName is Key without its positional suffix (homeStreet for
	// homeStreet2, workEmail for workEmail3).
	BaseName string

	// Label is the dropdown value the key represents. For address members
	// and placeholders it is the instance label (homeAddress, workAddress);
	// for everything else it equals BaseName.
	Label string

	Group    Group
	Position int

	// Prefix and Member are set for address keys only. Member is empty for
	// the placeholder key.
	Prefix string
	Member string

	IsAddressField    bool
	HasLabelChoice    bool
	LabelChoices      []string
	SupportsAddRemove bool
	Widget            Widget
}

// IsPlaceholder reports whether the key is an address placeholder rather
// than one of the five concrete member keys.
func (f FieldInfo) IsPlaceholder() bool {
	return f.IsAddressField && f.Member == ""
}

// Classify derives group, base name and UI affordances for an attribute key.
func Classify(key string) FieldInfo {
	name, position := SplitSuffix(key)
	info := FieldInfo{
		Key:      key,
		BaseName: name,
		Label:    name,
		Position: position,
		Widget:   WidgetText,
	}

	if prefix, member, ok := splitAddressMember(name); ok {
		info.Prefix = prefix
		info.Member = member
		return withAddress(info)
	}
	if prefix, ok := strings.CutSuffix(name, "Address"); ok && (prefix == PrefixHome || prefix == PrefixWork) {
		info.Prefix = prefix
		info.Widget = WidgetDropdown
		return withAddress(info)
	}

	group := GroupOf(name)
	info.Group = group
	switch group {
	case GroupEmail:
		info.Widget = WidgetEmail
	case GroupPhone:
		info.Widget = WidgetTel
	case GroupSingle:
		info.Widget = WidgetDate
	case GroupNone:
		if name == Notes {
			info.Widget = WidgetTextArea
		}
	}

	if labels := Labels(group); labels != nil && group != GroupAddress {
		info.HasLabelChoice = true
		info.LabelChoices = labels
	}
	info.SupportsAddRemove = info.HasLabelChoice || isRepeatable(name)
	return info
}

func withAddress(info FieldInfo) FieldInfo {
	info.Group = GroupAddress
	info.Label = info.Prefix + "Address"
	info.IsAddressField = true
	info.HasLabelChoice = true
	info.LabelChoices = Labels(GroupAddress)
	info.SupportsAddRemove = true
	return info
}

// NextSuffix returns the suffix of the lowest position not yet used by label
// among existing keys. Position 1 is returned as "".
func NextSuffix(label string, existing []string) string {
	return SuffixString(NextPosition(label, existing))
}

// NextPosition is NextSuffix expressed as a position number.
func NextPosition(label string, existing []string) int {
	occupied := make(map[int]bool)
	for _, k := range existing {
		info := Classify(k)
		if info.Label == label {
			occupied[info.Position] = true
		}
	}
	p := 1
	for occupied[p] {
		p++
	}
	return p
}
