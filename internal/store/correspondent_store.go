package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/model"
)

// RecordCorrespondents upserts harvested addresses, adding to their seen
// counts. Addresses are stored lowercased.
func (s *SQLiteStore) RecordCorrespondents(ctx context.Context, seen []model.Correspondent) error {
	if len(seen) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO correspondents (address, name, seen_count, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE correspondents.name END,
			seen_count = correspondents.seen_count + excluded.seen_count,
			last_seen = MAX(correspondents.last_seen, excluded.last_seen)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing correspondent upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range seen {
		addr := strings.ToLower(strings.TrimSpace(c.Address))
		if addr == "" {
			continue
		}
		count := c.SeenCount
		if count <= 0 {
			count = 1
		}
		lastSeen := c.LastSeen
		if lastSeen.IsZero() {
			lastSeen = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, addr, strings.TrimSpace(c.Name), count, lastSeen.UTC()); err != nil {
			return fmt.Errorf("recording correspondent %s: %w", addr, err)
		}
	}

	return tx.Commit()
}

// ListCorrespondents returns the most frequently seen correspondents.
func (s *SQLiteStore) ListCorrespondents(ctx context.Context, limit int) ([]model.Correspondent, error) {
	query := "SELECT address, name, seen_count, last_seen FROM correspondents ORDER BY seen_count DESC, address ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var out []model.Correspondent
	if err := s.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("querying correspondents: %w", err)
	}
	return out, nil
}

// SuggestAddresses returns autocomplete candidates whose name or address
// starts with prefix. Saved contacts rank ahead of harvested
// correspondents; each address appears once.
func (s *SQLiteStore) SuggestAddresses(ctx context.Context, prefix string, limit int) ([]model.Suggestion, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	contacts, err := s.ListContacts(ctx, model.ContactFilter{Query: prefix})
	if err != nil {
		return nil, err
	}

	var out []model.Suggestion
	seen := make(map[string]bool)
	for _, c := range contacts {
		name := c.DisplayName()
		for _, addr := range contactEmails(c.Attributes) {
			key := strings.ToLower(addr)
			if seen[key] || !matchesPrefix(prefix, name, addr) {
				continue
			}
			seen[key] = true
			out = append(out, model.Suggestion{Name: name, Address: addr, FromContact: true})
		}
	}

	if len(out) < limit {
		var rows []model.Correspondent
		err := s.db.SelectContext(ctx, &rows, `
			SELECT address, name, seen_count, last_seen FROM correspondents
			WHERE address LIKE ? OR LOWER(name) LIKE ? OR LOWER(name) LIKE ?
			ORDER BY seen_count DESC, last_seen DESC
			LIMIT ?`,
			prefix+"%", prefix+"%", "% "+prefix+"%", limit,
		)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("querying correspondents: %w", err)
		}
		for _, r := range rows {
			if seen[r.Address] {
				continue
			}
			seen[r.Address] = true
			out = append(out, model.Suggestion{Name: r.Name, Address: r.Address})
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// contactEmails returns a contact's populated email-group values in label
// then position order.
func contactEmails(attrs map[string]string) []string {
	var keys []string
	for k, v := range attrs {
		if strings.TrimSpace(v) != "" && fields.Classify(k).Group == fields.GroupEmail {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := fields.Classify(keys[i]), fields.Classify(keys[j])
		if a.Label != b.Label {
			return fields.LabelIndex(a.Label) < fields.LabelIndex(b.Label)
		}
		return a.Position < b.Position
	})

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.TrimSpace(attrs[k])
	}
	return out
}

// matchesPrefix reports whether the address or any word of the name starts
// with prefix.
func matchesPrefix(prefix, name, addr string) bool {
	if strings.HasPrefix(strings.ToLower(addr), prefix) {
		return true
	}
	for _, w := range strings.Fields(strings.ToLower(name)) {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

// GetHarvestCursor returns the stored progress for mailbox, or a zero cursor
// when the mailbox has never been harvested.
func (s *SQLiteStore) GetHarvestCursor(ctx context.Context, mailbox string) (*HarvestCursor, error) {
	var c HarvestCursor
	err := s.db.GetContext(ctx, &c,
		"SELECT mailbox, uid_validity, last_uid FROM harvest_cursors WHERE mailbox = ?", mailbox)
	if errors.Is(err, sql.ErrNoRows) {
		return &HarvestCursor{Mailbox: mailbox}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting harvest cursor %s: %w", mailbox, err)
	}
	return &c, nil
}

// SetHarvestCursor records progress for a mailbox.
func (s *SQLiteStore) SetHarvestCursor(ctx context.Context, cursor HarvestCursor) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO harvest_cursors (mailbox, uid_validity, last_uid) VALUES (?, ?, ?)",
		cursor.Mailbox, cursor.UIDValidity, cursor.LastUID,
	)
	if err != nil {
		return fmt.Errorf("setting harvest cursor %s: %w", cursor.Mailbox, err)
	}
	return nil
}
