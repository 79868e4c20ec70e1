// Package vcf converts contacts to and from vCard 4.0.
package vcf

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/model"
)

// typeLabel pairs an attribute label with the vCard TYPE it exports as.
// Import checks pairs in order, so specific types precede voice.
type typeLabel struct {
	label string
	typ   string
}

var emailTypes = []typeLabel{
	{"homeEmail", vcard.TypeHome},
	{"workEmail", vcard.TypeWork},
	{"otherEmail", "other"},
}

var telTypes = []typeLabel{
	{"mobile", vcard.TypeCell},
	{"homePhone", vcard.TypeHome},
	{"workPhone", vcard.TypeWork},
	{"pager", vcard.TypePager},
	{"fax", vcard.TypeFax},
	{"phone", vcard.TypeVoice},
}

var plainFields = map[string]string{
	fields.Nickname: vcard.FieldNickname,
	fields.JobTitle: vcard.FieldTitle,
	fields.Website:  vcard.FieldURL,
	fields.Notes:    vcard.FieldNote,
}

// ToCard renders a contact as a vCard. Attributes are taken in stored form.
func ToCard(c model.Contact) vcard.Card {
	attrs := editor.DecodeIM(c.Attributes)
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, "4.0")
	if c.ID != "" {
		card.SetValue(vcard.FieldUID, "urn:uuid:"+c.ID)
	}
	card.SetValue(vcard.FieldFormattedName, c.DisplayName())
	card.SetName(&vcard.Name{
		GivenName:  attrs[fields.FirstName],
		FamilyName: attrs[fields.LastName],
	})
	if v := attrs[fields.Company]; v != "" {
		card.SetValue(vcard.FieldOrganization, v)
	}
	for _, attr := range sortedKeys(plainFields) {
		if v := attrs[attr]; v != "" {
			card.AddValue(plainFields[attr], v)
		}
	}

	for _, k := range groupKeys(attrs, fields.GroupEmail) {
		card.Add(vcard.FieldEmail, typedField(attrs[k], typeOf(emailTypes, fields.Classify(k).Label)))
	}
	for _, k := range groupKeys(attrs, fields.GroupPhone) {
		card.Add(vcard.FieldTelephone, typedField(attrs[k], typeOf(telTypes, fields.Classify(k).Label)))
	}
	for _, k := range groupKeys(attrs, fields.GroupIM) {
		protocol, _ := fields.IMProtocol(fields.Classify(k).Label)
		card.AddValue(vcard.FieldIMPP, protocol+":"+attrs[k])
	}
	for _, k := range groupKeys(attrs, fields.GroupSingle) {
		name := vcard.FieldBirthday
		if fields.Classify(k).Label == fields.Anniv {
			name = vcard.FieldAnniversary
		}
		card.AddValue(name, attrs[k])
	}
	for _, inst := range addressInstances(attrs) {
		members := fields.AddressMembers(inst.prefix, inst.position)
		addr := &vcard.Address{
			Field:         typedField("", inst.prefix),
			StreetAddress: attrs[members[0]],
			Locality:      attrs[members[1]],
			Region:        attrs[members[2]],
			PostalCode:    attrs[members[3]],
			Country:       attrs[members[4]],
		}
		card.AddAddress(addr)
	}
	if v := attrs[fields.Certificate]; v != "" {
		card.AddValue(vcard.FieldKey, v)
	}
	return card
}

// FromCard maps a vCard onto attributes in stored form with contiguous
// suffixes. Properties without an attribute equivalent are dropped.
func FromCard(card vcard.Card) map[string]string {
	attrs := make(map[string]string)
	var keys []string
	put := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		key := fields.FormatKey(label, fields.NextPosition(label, keys))
		keys = append(keys, key)
		attrs[key] = value
	}

	if n := card.Name(); n != nil {
		put(fields.FirstName, n.GivenName)
		put(fields.LastName, n.FamilyName)
	}
	if attrs[fields.FirstName] == "" && attrs[fields.LastName] == "" {
		if fn := card.Value(vcard.FieldFormattedName); fn != "" {
			first, last, _ := strings.Cut(strings.TrimSpace(fn), " ")
			put(fields.FirstName, first)
			put(fields.LastName, last)
		}
	}
	if org := card.Value(vcard.FieldOrganization); org != "" {
		put(fields.Company, strings.Split(org, ";")[0])
	}
	for attr, name := range plainFields {
		put(attr, card.Value(name))
	}

	for _, f := range card[vcard.FieldEmail] {
		put(labelFor(emailTypes, f.Params, "email"), f.Value)
	}
	for _, f := range card[vcard.FieldTelephone] {
		put(labelFor(telTypes, f.Params, "phone"), strings.TrimPrefix(f.Value, "tel:"))
	}
	for _, f := range card[vcard.FieldIMPP] {
		scheme, id, ok := strings.Cut(f.Value, ":")
		if !ok {
			put("im", f.Value)
			continue
		}
		label, known := fields.IMLabelForProtocol(scheme)
		if !known {
			// Keep the scheme so the protocol survives a round trip.
			put("im", f.Value)
			continue
		}
		put(label, strings.TrimPrefix(id, "//"))
	}
	for _, f := range card[vcard.FieldBirthday] {
		put(fields.Birthday, f.Value)
	}
	for _, f := range card[vcard.FieldAnniversary] {
		put(fields.Anniv, f.Value)
	}

	for _, a := range card.Addresses() {
		prefix := fields.PrefixHome
		if hasType(a.Params, vcard.TypeWork) {
			prefix = fields.PrefixWork
		}
		pos := fields.NextPosition(prefix+"Address", keys)
		keys = append(keys, fields.AddressPlaceholder(prefix, pos))
		members := fields.AddressMembers(prefix, pos)
		for i, v := range []string{a.StreetAddress, a.Locality, a.Region, a.PostalCode, a.Country} {
			if v = strings.TrimSpace(v); v != "" {
				attrs[members[i]] = v
			}
		}
	}

	if key := card.Get(vcard.FieldKey); key != nil && strings.Contains(key.Value, "BEGIN CERTIFICATE") {
		attrs[fields.Certificate] = key.Value
	}

	return editor.EncodeIM(editor.Normalize(attrs))
}

// Encode writes contacts as a vCard stream.
func Encode(w io.Writer, contacts []model.Contact) error {
	enc := vcard.NewEncoder(w)
	for _, c := range contacts {
		if err := enc.Encode(ToCard(c)); err != nil {
			return fmt.Errorf("encoding contact %s: %w", c.ID, err)
		}
	}
	return nil
}

// Decode reads every card of a vCard stream.
func Decode(r io.Reader) ([]map[string]string, error) {
	dec := vcard.NewDecoder(r)
	var out []map[string]string
	for {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decoding vCard %d: %w", len(out)+1, err)
		}
		if attrs := FromCard(card); len(attrs) > 0 {
			out = append(out, attrs)
		}
	}
}

func typedField(value, typ string) *vcard.Field {
	f := &vcard.Field{Value: value, Params: make(vcard.Params)}
	if typ != "" {
		f.Params[vcard.ParamType] = []string{typ}
	}
	return f
}

func typeOf(pairs []typeLabel, label string) string {
	for _, p := range pairs {
		if p.label == label {
			return p.typ
		}
	}
	return ""
}

// hasType also accepts comma-joined TYPE values.
func hasType(params vcard.Params, typ string) bool {
	for _, t := range params.Types() {
		for _, part := range strings.Split(t, ",") {
			if strings.EqualFold(strings.TrimSpace(part), typ) {
				return true
			}
		}
	}
	return false
}

// labelFor picks the first label whose TYPE appears in params.
func labelFor(pairs []typeLabel, params vcard.Params, fallback string) string {
	for _, p := range pairs {
		if hasType(params, p.typ) {
			return p.label
		}
	}
	return fallback
}

// groupKeys returns the populated keys of g in label then position order.
func groupKeys(attrs map[string]string, g fields.Group) []string {
	var keys []string
	for k, v := range attrs {
		if v != "" && !fields.Classify(k).IsAddressField && fields.Classify(k).Group == g {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := fields.Classify(keys[i]), fields.Classify(keys[j])
		if a.Label != b.Label {
			return labelOrder(a.Label) < labelOrder(b.Label)
		}
		return a.Position < b.Position
	})
	return keys
}

func labelOrder(label string) int {
	if i := fields.LabelIndex(label); i >= 0 {
		return i
	}
	if label == fields.Anniv {
		return 1
	}
	return 0
}

type addressInstance struct {
	prefix   string
	position int
}

// addressInstances returns the address instances with any populated member,
// home before work, by position.
func addressInstances(attrs map[string]string) []addressInstance {
	seen := make(map[addressInstance]bool)
	for k, v := range attrs {
		info := fields.Classify(k)
		if info.IsAddressField && !info.IsPlaceholder() && strings.TrimSpace(v) != "" {
			seen[addressInstance{info.Prefix, info.Position}] = true
		}
	}
	out := make([]addressInstance, 0, len(seen))
	for inst := range seen {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].prefix != out[j].prefix {
			return out[i].prefix == fields.PrefixHome
		}
		return out[i].position < out[j].position
	})
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
