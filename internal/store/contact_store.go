package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/addressbook/internal/model"
)

type contactRow struct {
	ID         string    `db:"id"`
	Attributes string    `db:"attributes"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r contactRow) toModel() (model.Contact, error) {
	c := model.Contact{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if err := json.Unmarshal([]byte(r.Attributes), &c.Attributes); err != nil {
		return c, fmt.Errorf("decoding attributes of contact %s: %w", r.ID, err)
	}
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	return c, nil
}

// searchText is the lowercased concatenation of all attribute values.
func searchText(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		if v := strings.TrimSpace(attrs[k]); v != "" {
			b.WriteString(strings.ToLower(v))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// CreateContact inserts a new contact with the given attributes.
func (s *SQLiteStore) CreateContact(ctx context.Context, attrs map[string]string) (*model.Contact, error) {
	c := model.Contact{
		ID:         uuid.New().String(),
		Attributes: copyAttrs(attrs),
		CreatedAt:  time.Now().UTC(),
	}
	c.UpdatedAt = c.CreatedAt

	data, err := json.Marshal(c.Attributes)
	if err != nil {
		return nil, fmt.Errorf("marshaling contact attributes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, attributes, sort_name, search_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, string(data), strings.ToLower(c.DisplayName()), searchText(c.Attributes),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	return &c, nil
}

// ModifyContact applies changes to a stored contact. A nil value removes the
// key. The updated contact is returned.
func (s *SQLiteStore) ModifyContact(ctx context.Context, id string, changes map[string]*string) (*model.Contact, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var row contactRow
	err = tx.GetContext(ctx, &row,
		"SELECT id, attributes, created_at, updated_at FROM contacts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading contact %s: %w", id, err)
	}

	c, err := row.toModel()
	if err != nil {
		return nil, err
	}
	for k, v := range changes {
		if v == nil {
			delete(c.Attributes, k)
			continue
		}
		c.Attributes[k] = *v
	}
	c.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(c.Attributes)
	if err != nil {
		return nil, fmt.Errorf("marshaling contact attributes: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE contacts SET attributes = ?, sort_name = ?, search_text = ?, updated_at = ?
		WHERE id = ?`,
		string(data), strings.ToLower(c.DisplayName()), searchText(c.Attributes), c.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating contact %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing contact %s: %w", id, err)
	}
	return &c, nil
}

// GetContact retrieves a single contact by its ID.
func (s *SQLiteStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	var row contactRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, attributes, created_at, updated_at FROM contacts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting contact %s: %w", id, err)
	}

	c, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts retrieves contacts ordered by display name.
func (s *SQLiteStore) ListContacts(ctx context.Context, filter model.ContactFilter) ([]model.Contact, error) {
	query := "SELECT id, attributes, created_at, updated_at FROM contacts"
	var args []interface{}

	if q := strings.TrimSpace(filter.Query); q != "" {
		query += " WHERE search_text LIKE ?"
		args = append(args, "%"+strings.ToLower(q)+"%")
	}
	query += " ORDER BY sort_name ASC, created_at ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var rows []contactRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}

	contacts := make([]model.Contact, 0, len(rows))
	for _, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// CountContacts returns the number of stored contacts.
func (s *SQLiteStore) CountContacts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM contacts"); err != nil {
		return 0, fmt.Errorf("counting contacts: %w", err)
	}
	return n, nil
}

// DeleteContact removes a contact.
func (s *SQLiteStore) DeleteContact(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting contact %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	return nil
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
