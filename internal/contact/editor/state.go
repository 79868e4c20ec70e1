// Package editor implements the contact editor's field state: the
// attributes map and the ordered visible-fields list, and the reducer
// functions (add, remove, relabel, set value, normalize) that move it from one
// consistent value to the next. State values are never mutated in place.
package editor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nhle/addressbook/internal/contact/fields"
)

// Sentinel entries of the visible-fields list that have no attribute.
const (
	AddMoreSentinel     = "__add_more__"
	CertificateSentinel = "__certificate__"
)

// ErrUnknownKey is returned when an operation names a key that is not part
// of the current state.
var ErrUnknownKey = errors.New("unknown attribute key")

// ErrNotRepeatable is returned when adding or relabeling to a field that has
// no add/remove affordance.
var ErrNotRepeatable = errors.New("field does not support add/remove")

// IsSentinel reports whether key is a visible-list placeholder with no
// backing attribute.
func IsSentinel(key string) bool {
	return key == AddMoreSentinel || key == CertificateSentinel
}

// slot is one entry of the visible-fields template.
type slot struct {
	key      string
	group    fields.Group
	fallback string
}

// template is the fixed on-screen order. Group slots expand to every key of
// the group found in the attributes, or to fallback when there are none.
var template = []slot{
	{key: fields.FirstName},
	{key: fields.LastName},
	{key: fields.Nickname},
	{key: fields.Company},
	{key: fields.JobTitle},
	{group: fields.GroupEmail, fallback: "email"},
	{group: fields.GroupPhone, fallback: "mobile"},
	{group: fields.GroupIM, fallback: "im"},
	{group: fields.GroupAddress, fallback: "homeAddress"},
	{key: fields.Website},
	{group: fields.GroupSingle, key: fields.Birthday, fallback: fields.Birthday},
	{group: fields.GroupSingle, key: fields.Anniv, fallback: fields.Anniv},
	{key: fields.Notes},
	{key: AddMoreSentinel},
	{key: CertificateSentinel},
}

// State is one snapshot of an editor session.
type State struct {
	attrs   map[string]string
	visible []string
}

// NewState derives the visible-fields list for attrs and returns a state in
// which every visible key has an attribute entry.
func NewState(attrs map[string]string) State {
	s := State{attrs: make(map[string]string, len(attrs))}
	for k, v := range attrs {
		s.attrs[k] = v
	}

	byGroup := groupedKeys(s.attrs)
	for _, sl := range template {
		switch {
		case sl.group == fields.GroupNone:
			s.visible = append(s.visible, sl.key)
		case sl.group == fields.GroupSingle:
			keys := byGroup[fields.GroupSingle][sl.key]
			if len(keys) == 0 {
				keys = []string{sl.fallback}
			}
			s.visible = append(s.visible, keys...)
		default:
			var keys []string
			for _, label := range fields.Labels(sl.group) {
				keys = append(keys, byGroup[sl.group][label]...)
			}
			if len(keys) == 0 {
				keys = []string{sl.fallback}
			}
			s.visible = append(s.visible, keys...)
		}
	}

	for _, key := range s.visible {
		s.ensureAttrs(key)
	}
	return s
}

// groupedKeys returns, per group and label, the visible keys found in attrs
// sorted by position. Address members collapse to their placeholder.
func groupedKeys(attrs map[string]string) map[fields.Group]map[string][]string {
	positions := make(map[fields.Group]map[string]map[int]bool)
	for k := range attrs {
		info := fields.Classify(k)
		if info.Group == fields.GroupNone {
			continue
		}
		if positions[info.Group] == nil {
			positions[info.Group] = make(map[string]map[int]bool)
		}
		if positions[info.Group][info.Label] == nil {
			positions[info.Group][info.Label] = make(map[int]bool)
		}
		positions[info.Group][info.Label][info.Position] = true
	}

	out := make(map[fields.Group]map[string][]string, len(positions))
	for g, labels := range positions {
		out[g] = make(map[string][]string, len(labels))
		for label, ps := range labels {
			sorted := make([]int, 0, len(ps))
			for p := range ps {
				sorted = append(sorted, p)
			}
			sort.Ints(sorted)
			for _, p := range sorted {
				out[g][label] = append(out[g][label], fields.FormatKey(label, p))
			}
		}
	}
	return out
}

// ensureAttrs makes sure a visible key is backed by attribute entries.
func (s *State) ensureAttrs(key string) {
	if IsSentinel(key) {
		return
	}
	info := fields.Classify(key)
	if info.IsAddressField {
		for _, m := range fields.AddressMembers(info.Prefix, info.Position) {
			if _, ok := s.attrs[m]; !ok {
				s.attrs[m] = ""
			}
		}
		return
	}
	if _, ok := s.attrs[key]; !ok {
		s.attrs[key] = ""
	}
}

// Attributes returns a copy of the attributes map.
func (s State) Attributes() map[string]string {
	out := make(map[string]string, len(s.attrs))
	for k, v := range s.attrs {
		out[k] = v
	}
	return out
}

// Visible returns a copy of the visible-fields list.
func (s State) Visible() []string {
	out := make([]string, len(s.visible))
	copy(out, s.visible)
	return out
}

// Value returns the attribute value stored under key.
func (s State) Value(key string) (string, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

// IndexOf returns the position of key in the visible list, or -1.
func (s State) IndexOf(key string) int {
	for i, k := range s.visible {
		if k == key {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	return State{attrs: s.Attributes(), visible: s.Visible()}
}

// SetValue returns a state with key set to value. Grouped keys must already
// be part of the state; plain fields such as image may be set freely.
func (s State) SetValue(key, value string) (State, error) {
	if IsSentinel(key) {
		return s, fmt.Errorf("setting %q: %w", key, ErrUnknownKey)
	}
	if _, ok := s.attrs[key]; !ok && fields.Classify(key).Group != fields.GroupNone {
		return s, fmt.Errorf("setting %q: %w", key, ErrUnknownKey)
	}
	next := s.clone()
	next.attrs[key] = value
	return next, nil
}

// CheckConsistency verifies that every visible key is backed by attributes
// and every populated grouped attribute is reachable from the visible list.
func (s State) CheckConsistency() error {
	seen := make(map[string]bool)
	for _, key := range s.visible {
		if IsSentinel(key) {
			continue
		}
		if seen[key] {
			return fmt.Errorf("visible key %q listed twice", key)
		}
		seen[key] = true

		info := fields.Classify(key)
		if info.IsAddressField {
			if !info.IsPlaceholder() {
				return fmt.Errorf("address member %q listed instead of its placeholder", key)
			}
			for _, m := range fields.AddressMembers(info.Prefix, info.Position) {
				if _, ok := s.attrs[m]; !ok {
					return fmt.Errorf("address %q is missing member %q", key, m)
				}
			}
			continue
		}
		if _, ok := s.attrs[key]; !ok {
			return fmt.Errorf("visible key %q has no attribute", key)
		}
	}

	for key, value := range s.attrs {
		if value == "" {
			continue
		}
		info := fields.Classify(key)
		if info.Group == fields.GroupNone {
			continue
		}
		visibleKey := key
		if info.IsAddressField {
			visibleKey = fields.AddressPlaceholder(info.Prefix, info.Position)
		}
		if !seen[visibleKey] {
			return fmt.Errorf("populated attribute %q is not visible", key)
		}
	}
	return nil
}

// occupants lists the keys a new suffix must not collide with: the visible
// list plus every attribute key, minus the keys in exclude.
func (s State) occupants(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	keys := make([]string, 0, len(s.visible)+len(s.attrs))
	for _, k := range s.visible {
		if !skip[k] && !IsSentinel(k) {
			keys = append(keys, k)
		}
	}
	for k := range s.attrs {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// insertAt returns list with key inserted at index i.
func insertAt(list []string, i int, key string) []string {
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = key
	return list
}

// removeAt returns list without the element at index i.
func removeAt(list []string, i int) []string {
	return append(list[:i], list[i+1:]...)
}
