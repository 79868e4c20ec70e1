package editor

import (
	"sort"
	"strings"

	"github.com/nhle/addressbook/internal/contact/fields"
)

// Normalize returns a copy of the state with unpopulated grouped fields
// dropped and every label's suffixes renumbered to 1..k in ascending order.
// Address instances move as a unit. The receiver is left untouched.
func (s State) Normalize() State {
	mapping, drop := renumber(s.attrs)

	next := State{attrs: make(map[string]string, len(s.attrs))}
	for k, v := range s.attrs {
		if drop[k] || fields.Classify(k).IsPlaceholder() {
			continue
		}
		if nk, ok := mapping[k]; ok {
			k = nk
		}
		next.attrs[k] = v
	}
	for _, k := range s.visible {
		if drop[k] {
			continue
		}
		if nk, ok := mapping[k]; ok {
			k = nk
		}
		next.visible = append(next.visible, k)
	}
	return next
}

// Normalize compacts a bare attributes map: empty values are removed and
// suffixes renumbered as State.Normalize does.
func Normalize(attrs map[string]string) map[string]string {
	mapping, _ := renumber(attrs)
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if strings.TrimSpace(v) == "" || fields.Classify(k).IsPlaceholder() {
			continue
		}
		if nk, ok := mapping[k]; ok {
			k = nk
		}
		out[k] = v
	}
	return out
}

// renumber computes the key rename mapping for populated grouped keys and
// the set of grouped keys that carry no value. Address placeholders are
// mapped and dropped together with their instance.
func renumber(attrs map[string]string) (mapping map[string]string, drop map[string]bool) {
	mapping = make(map[string]string)
	drop = make(map[string]bool)

	simple := make(map[string][]int)
	addresses := make(map[string]map[int]bool)
	seenAddress := make(map[string]map[int]bool)

	for k, v := range attrs {
		info := fields.Classify(k)
		if info.Group == fields.GroupNone {
			continue
		}
		if info.IsAddressField {
			if seenAddress[info.Prefix] == nil {
				seenAddress[info.Prefix] = make(map[int]bool)
			}
			seenAddress[info.Prefix][info.Position] = true
			if info.IsPlaceholder() {
				continue
			}
			if strings.TrimSpace(v) != "" {
				if addresses[info.Prefix] == nil {
					addresses[info.Prefix] = make(map[int]bool)
				}
				addresses[info.Prefix][info.Position] = true
			}
			continue
		}
		if strings.TrimSpace(v) == "" {
			drop[k] = true
			continue
		}
		simple[info.Label] = append(simple[info.Label], info.Position)
	}

	for label, positions := range simple {
		sort.Ints(positions)
		for i, p := range positions {
			mapping[fields.FormatKey(label, p)] = fields.FormatKey(label, i+1)
		}
	}

	for prefix, seen := range seenAddress {
		populated := sortedPositions(addresses[prefix])
		for i, p := range populated {
			mapping[fields.AddressPlaceholder(prefix, p)] = fields.AddressPlaceholder(prefix, i+1)
			oldMembers := fields.AddressMembers(prefix, p)
			newMembers := fields.AddressMembers(prefix, i+1)
			for j := range oldMembers {
				mapping[oldMembers[j]] = newMembers[j]
			}
		}
		for p := range seen {
			if addresses[prefix][p] {
				continue
			}
			drop[fields.AddressPlaceholder(prefix, p)] = true
			for _, m := range fields.AddressMembers(prefix, p) {
				drop[m] = true
			}
		}
	}
	return mapping, drop
}

func sortedPositions(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
