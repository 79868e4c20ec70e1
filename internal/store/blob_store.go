package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nhle/addressbook/internal/model"
)

// UploadBlob stores data and returns its content hash as the attachment id.
// Uploading identical data twice returns the same id.
func (s *SQLiteStore) UploadBlob(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("blob must not be empty")
	}
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO blobs (id, mime_type, data, created_at) VALUES (?, ?, ?, ?)",
		id, mimetype.Detect(data).String(), data, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("storing blob: %w", err)
	}
	return id, nil
}

// GetBlob retrieves a stored blob.
func (s *SQLiteStore) GetBlob(ctx context.Context, id string) (*model.Blob, error) {
	var b model.Blob
	err := s.db.QueryRowxContext(ctx,
		"SELECT id, mime_type, data, created_at FROM blobs WHERE id = ?", id,
	).Scan(&b.ID, &b.MimeType, &b.Data, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting blob %s: %w", id, err)
	}
	return &b, nil
}
