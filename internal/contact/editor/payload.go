package editor

import (
	"strings"

	"github.com/nhle/addressbook/internal/contact/fields"
)

// EncodeIM returns a copy of attrs with instant-messenger values stored as
// protocol://id, the protocol taken from each key's label.
func EncodeIM(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		info := fields.Classify(k)
		if info.Group == fields.GroupIM && v != "" {
			if protocol, ok := fields.IMProtocol(info.Label); ok {
				v = protocol + "://" + stripIMScheme(v)
			}
		}
		out[k] = v
	}
	return out
}

// DecodeIM reverses EncodeIM. Values without a known scheme pass through.
func DecodeIM(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if fields.Classify(k).Group == fields.GroupIM {
			v = stripIMScheme(v)
		}
		out[k] = v
	}
	return out
}

func stripIMScheme(v string) string {
	scheme, id, ok := strings.Cut(v, "://")
	if !ok {
		return v
	}
	if _, known := fields.IMLabelForProtocol(scheme); !known {
		return v
	}
	return id
}

// Payload is what a save hands to the mutation layer. Create is set for new
// contacts; Changes holds only differing keys, nil marking a removed key.
type Payload struct {
	Create  map[string]string
	Changes map[string]*string
}

// IsCreate reports whether the payload creates a new contact.
func (p Payload) IsCreate() bool {
	return p.Create != nil
}

// Empty reports whether a modify payload carries no changes.
func (p Payload) Empty() bool {
	return p.Create == nil && len(p.Changes) == 0
}

// BuildPayload normalizes state and diffs it against original, the stored
// attributes of the contact being edited. A nil original builds a create
// payload.
func BuildPayload(original map[string]string, s State) Payload {
	attrs := EncodeIM(Normalize(s.attrs))
	if original == nil {
		return Payload{Create: attrs}
	}

	changes := make(map[string]*string)
	for k, v := range attrs {
		if old, ok := original[k]; ok && old == v {
			continue
		}
		v := v
		changes[k] = &v
	}
	for k := range original {
		if _, ok := attrs[k]; !ok {
			changes[k] = nil
		}
	}
	return Payload{Changes: changes}
}
