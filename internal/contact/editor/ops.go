package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/addressbook/internal/contact/fields"
)

// ErrInvalidLabel is returned when a relabel target is not one of the
// field's label choices.
var ErrInvalidLabel = errors.New("label is not a choice for this field")

// AddOp inserts a new empty field of NewBaseName after AfterKey.
type AddOp struct {
	AfterKey    string
	NewBaseName string
	Group       fields.Group
}

// RemoveOp removes AttributeKey. Address members and placeholders remove the
// whole address instance.
type RemoveOp struct {
	AttributeKey string
	Group        fields.Group
}

// RelabelOp changes the label an existing slot represents while keeping its
// value and its place in the visible list.
type RelabelOp struct {
	OriginalKey string
	NewBaseName string
	Group       fields.Group
}

// AddField returns the state with a new field inserted and the visible key
// that was inserted.
func (s State) AddField(op AddOp) (State, string, error) {
	base, _ := fields.SplitSuffix(op.NewBaseName)
	if op.Group == fields.GroupAddress || fields.GroupOf(base) == fields.GroupAddress {
		return s.addAddress(op.AfterKey, base)
	}

	info := fields.Classify(base)
	if !info.SupportsAddRemove || info.IsAddressField {
		return s, "", fmt.Errorf("adding %q: %w", op.NewBaseName, ErrNotRepeatable)
	}

	key := fields.FormatKey(base, fields.NextPosition(base, s.occupants()))
	next := s.clone()
	next.attrs[key] = ""
	next.visible = insertAt(next.visible, next.insertIndex(op.AfterKey), key)
	return next, key, nil
}

func (s State) addAddress(afterKey, label string) (State, string, error) {
	prefix := fields.PrefixHome
	if p, ok := strings.CutSuffix(label, "Address"); ok && p == fields.PrefixWork {
		prefix = fields.PrefixWork
	}
	pos := fields.NextPosition(prefix+"Address", s.occupants())
	placeholder := fields.AddressPlaceholder(prefix, pos)

	next := s.clone()
	for _, m := range fields.AddressMembers(prefix, pos) {
		next.attrs[m] = ""
	}
	next.visible = insertAt(next.visible, next.insertIndex(afterKey), placeholder)
	return next, placeholder, nil
}

// insertIndex is the visible index right after afterKey. Unknown keys insert
// before the first sentinel.
func (s State) insertIndex(afterKey string) int {
	if info := fields.Classify(afterKey); info.IsAddressField {
		afterKey = fields.AddressPlaceholder(info.Prefix, info.Position)
	}
	if i := s.IndexOf(afterKey); i >= 0 {
		return i + 1
	}
	for i, k := range s.visible {
		if IsSentinel(k) {
			return i
		}
	}
	return len(s.visible)
}

// RemoveField returns the state without the field. Remaining siblings keep
// their suffixes; gaps are closed by Normalize.
func (s State) RemoveField(op RemoveOp) (State, error) {
	if IsSentinel(op.AttributeKey) {
		return s, fmt.Errorf("removing %q: %w", op.AttributeKey, ErrUnknownKey)
	}

	info := fields.Classify(op.AttributeKey)
	if info.IsAddressField {
		placeholder := fields.AddressPlaceholder(info.Prefix, info.Position)
		members := fields.AddressMembers(info.Prefix, info.Position)
		if s.IndexOf(placeholder) < 0 && !s.hasAny(members) {
			return s, fmt.Errorf("removing %q: %w", op.AttributeKey, ErrUnknownKey)
		}
		next := s.clone()
		for _, m := range members {
			delete(next.attrs, m)
		}
		if i := next.IndexOf(placeholder); i >= 0 {
			next.visible = removeAt(next.visible, i)
		}
		return next, nil
	}

	_, inAttrs := s.attrs[op.AttributeKey]
	idx := s.IndexOf(op.AttributeKey)
	if !inAttrs && idx < 0 {
		return s, fmt.Errorf("removing %q: %w", op.AttributeKey, ErrUnknownKey)
	}
	next := s.clone()
	delete(next.attrs, op.AttributeKey)
	if idx >= 0 {
		next.visible = removeAt(next.visible, idx)
	}
	return next, nil
}

// Relabel moves the slot at OriginalKey to NewBaseName and returns the key it
// now lives under.
func (s State) Relabel(op RelabelOp) (State, string, error) {
	info := fields.Classify(op.OriginalKey)
	if !info.HasLabelChoice {
		return s, "", fmt.Errorf("relabeling %q: %w", op.OriginalKey, ErrInvalidLabel)
	}
	if !contains(info.LabelChoices, op.NewBaseName) {
		return s, "", fmt.Errorf("relabeling %q to %q: %w", op.OriginalKey, op.NewBaseName, ErrInvalidLabel)
	}
	if info.IsAddressField {
		return s.relabelAddress(info, op.NewBaseName)
	}

	value, inAttrs := s.attrs[op.OriginalKey]
	idx := s.IndexOf(op.OriginalKey)
	if !inAttrs && idx < 0 {
		return s, "", fmt.Errorf("relabeling %q: %w", op.OriginalKey, ErrUnknownKey)
	}
	if op.NewBaseName == info.Label {
		return s, op.OriginalKey, nil
	}

	newKey := fields.FormatKey(op.NewBaseName, fields.NextPosition(op.NewBaseName, s.occupants(op.OriginalKey)))
	next := s.clone()
	delete(next.attrs, op.OriginalKey)
	next.attrs[newKey] = value
	if idx >= 0 {
		next.visible[idx] = newKey
	} else {
		next.visible = insertAt(next.visible, next.insertIndex(""), newKey)
	}
	return next, newKey, nil
}

func (s State) relabelAddress(info fields.FieldInfo, newLabel string) (State, string, error) {
	oldPlaceholder := fields.AddressPlaceholder(info.Prefix, info.Position)
	oldMembers := fields.AddressMembers(info.Prefix, info.Position)
	idx := s.IndexOf(oldPlaceholder)
	if idx < 0 && !s.hasAny(oldMembers) {
		return s, "", fmt.Errorf("relabeling %q: %w", info.Key, ErrUnknownKey)
	}
	if newLabel == info.Label {
		return s, oldPlaceholder, nil
	}

	newPrefix := strings.TrimSuffix(newLabel, "Address")
	others := s.occupants(append(oldMembers, oldPlaceholder)...)
	pos := info.Position
	if positionTaken(newLabel, pos, others) {
		pos = fields.NextPosition(newLabel, others)
	}
	newPlaceholder := fields.AddressPlaceholder(newPrefix, pos)
	newMembers := fields.AddressMembers(newPrefix, pos)

	next := s.clone()
	for i, m := range oldMembers {
		v := next.attrs[m]
		delete(next.attrs, m)
		next.attrs[newMembers[i]] = v
	}
	if idx >= 0 {
		next.visible[idx] = newPlaceholder
	} else {
		next.visible = insertAt(next.visible, next.insertIndex(""), newPlaceholder)
	}
	return next, newPlaceholder, nil
}

// CycleLabel relabels key to the next choice of its dropdown, wrapping around.
func (s State) CycleLabel(key string) (State, string, error) {
	info := fields.Classify(key)
	if !info.HasLabelChoice {
		return s, "", fmt.Errorf("cycling %q: %w", key, ErrInvalidLabel)
	}
	i := 0
	for j, l := range info.LabelChoices {
		if l == info.Label {
			i = j
			break
		}
	}
	target := info.LabelChoices[(i+1)%len(info.LabelChoices)]
	return s.Relabel(RelabelOp{OriginalKey: key, NewBaseName: target, Group: info.Group})
}

func (s State) hasAny(keys []string) bool {
	for _, k := range keys {
		if _, ok := s.attrs[k]; ok {
			return true
		}
	}
	return false
}

func positionTaken(label string, position int, keys []string) bool {
	for _, k := range keys {
		info := fields.Classify(k)
		if info.Label == label && info.Position == position {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
