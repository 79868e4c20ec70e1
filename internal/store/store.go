package store

import (
	"context"
	"errors"

	"github.com/nhle/addressbook/internal/model"
)

// ErrNotFound is returned when a contact or blob does not exist.
var ErrNotFound = errors.New("not found")

// HarvestCursor records how far a mailbox has been harvested.
type HarvestCursor struct {
	Mailbox     string `db:"mailbox"`
	UIDValidity uint32 `db:"uid_validity"`
	LastUID     uint32 `db:"last_uid"`
}

// Store defines the persistence interface for contacts, uploaded blobs,
// harvested correspondents and harvest progress.
type Store interface {
	// === Contacts ===

	CreateContact(ctx context.Context, attrs map[string]string) (*model.Contact, error)
	ModifyContact(ctx context.Context, id string, changes map[string]*string) (*model.Contact, error)
	GetContact(ctx context.Context, id string) (*model.Contact, error)
	ListContacts(ctx context.Context, filter model.ContactFilter) ([]model.Contact, error)
	CountContacts(ctx context.Context) (int, error)
	DeleteContact(ctx context.Context, id string) error

	// === Blobs ===

	UploadBlob(ctx context.Context, data []byte) (string, error)
	GetBlob(ctx context.Context, id string) (*model.Blob, error)

	// === Correspondents ===

	RecordCorrespondents(ctx context.Context, seen []model.Correspondent) error
	ListCorrespondents(ctx context.Context, limit int) ([]model.Correspondent, error)
	SuggestAddresses(ctx context.Context, prefix string, limit int) ([]model.Suggestion, error)

	// === Harvest progress ===

	GetHarvestCursor(ctx context.Context, mailbox string) (*HarvestCursor, error)
	SetHarvestCursor(ctx context.Context, cursor HarvestCursor) error
}
