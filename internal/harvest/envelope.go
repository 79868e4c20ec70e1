package harvest

import (
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/addressbook/internal/model"
)

// fromEnvelope returns every sender and recipient of a message. Group
// syntax markers and addresses without a host are skipped.
func fromEnvelope(env *imap.Envelope) []model.Correspondent {
	if env == nil {
		return nil
	}

	var out []model.Correspondent
	for _, list := range [][]imap.Address{env.From, env.Sender, env.ReplyTo, env.To, env.Cc} {
		for _, a := range list {
			if a.IsGroupStart() || a.IsGroupEnd() || a.Host == "" {
				continue
			}
			out = append(out, model.Correspondent{
				Address:  strings.ToLower(a.Addr()),
				Name:     decodeName(a.Name),
				LastSeen: env.Date,
			})
		}
	}
	return dedupe(out)
}

// decodeName unwraps RFC 2047 encoded words some servers leave in envelope
// display names.
func decodeName(name string) string {
	if !strings.Contains(name, "=?") {
		return strings.TrimSpace(name)
	}
	h := mail.Header{}
	h.Set("X-Name", name)
	decoded, err := h.Text("X-Name")
	if err != nil {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(decoded)
}

// dedupe keeps one entry per address, preferring a non-empty name.
func dedupe(in []model.Correspondent) []model.Correspondent {
	index := make(map[string]int, len(in))
	out := in[:0]
	for _, c := range in {
		if i, ok := index[c.Address]; ok {
			if out[i].Name == "" {
				out[i].Name = c.Name
			}
			continue
		}
		index[c.Address] = len(out)
		out = append(out, c)
	}
	return out
}

// withoutSelf drops the account's own addresses.
func withoutSelf(in []model.Correspondent, self map[string]bool) []model.Correspondent {
	if len(self) == 0 {
		return in
	}
	out := make([]model.Correspondent, 0, len(in))
	for _, c := range in {
		if !self[c.Address] {
			out = append(out, c)
		}
	}
	return out
}
