package harvest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/store"
	"github.com/nhle/addressbook/tests/testutil"
)

func TestFromEnvelope(t *testing.T) {
	date := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env := &imap.Envelope{
		Date: date,
		From: []imap.Address{{Name: "Jo Doe", Mailbox: "Jo", Host: "Example.com"}},
		To: []imap.Address{
			{Mailbox: "me", Host: "example.org"},
			{Mailbox: "jo", Host: "example.com"},
		},
		Cc: []imap.Address{
			{Mailbox: "undisclosed-recipients"},
			{Name: "=?UTF-8?Q?Ren=C3=A9e?=", Mailbox: "renee", Host: "example.net"},
		},
	}

	got := fromEnvelope(env)
	assert.Equal(t, []model.Correspondent{
		{Address: "jo@example.com", Name: "Jo Doe", LastSeen: date},
		{Address: "me@example.org", LastSeen: date},
		{Address: "renee@example.net", Name: "Renée", LastSeen: date},
	}, got)

	assert.Nil(t, fromEnvelope(nil))
}

func TestNewerThan(t *testing.T) {
	assert.Equal(t, []imap.UID{11, 12}, newerThan([]imap.UID{12, 10, 11}, 10))
	assert.Empty(t, newerThan([]imap.UID{10}, 10))
}

func TestIsAuthError(t *testing.T) {
	err := fmt.Errorf("harvest: %w", &AuthError{Host: "imap.example.com", Message: "bad password"})
	assert.True(t, IsAuthError(err))
	assert.False(t, IsAuthError(errors.New("timeout")))
}

type fakeFetcher struct {
	batches map[string]*Batch
	err     error
	cursors []store.HarvestCursor
}

func (f *fakeFetcher) Fetch(_ context.Context, cursor store.HarvestCursor, _ int) (*Batch, error) {
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.batches[cursor.Mailbox]
	if !ok {
		return &Batch{Cursor: cursor}, nil
	}
	return b, nil
}

func TestRunOnceRecordsAndAdvancesCursor(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	f := &fakeFetcher{batches: map[string]*Batch{
		"INBOX": {
			Cursor: store.HarvestCursor{UIDValidity: 7, LastUID: 42},
			Correspondents: []model.Correspondent{
				{Address: "jo@example.com", Name: "Jo Doe"},
				{Address: "me@example.org"},
			},
		},
	}}

	p := NewPoller(f, s, model.HarvestConfig{
		Username:  "Me@example.org",
		Mailboxes: []string{"INBOX", "Sent"},
	}, nil, nil)

	results := p.RunOnce(ctx)
	require.Len(t, results, 2)
	assert.Equal(t, HarvestResultMsg{Mailbox: "INBOX", Recorded: 1}, results[0])
	assert.Equal(t, HarvestResultMsg{Mailbox: "Sent"}, results[1])
	assert.Equal(t, StateIdle, p.Status().State)
	assert.Equal(t, 1, p.Status().Recorded)

	cursor, err := s.GetHarvestCursor(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, store.HarvestCursor{Mailbox: "INBOX", UIDValidity: 7, LastUID: 42}, *cursor)

	suggestions, err := s.SuggestAddresses(ctx, "jo", 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Jo Doe", suggestions[0].Name)

	// The second round starts from the stored cursor.
	p.RunOnce(ctx)
	assert.Equal(t, uint32(42), f.cursors[2].LastUID)
}

func TestRunOnceStopsOnAuthError(t *testing.T) {
	s := testutil.NewTestStore(t)
	f := &fakeFetcher{err: &AuthError{Host: "imap.example.com", Message: "denied"}}
	p := NewPoller(f, s, model.HarvestConfig{Mailboxes: []string{"INBOX", "Sent"}}, nil, nil)

	results := p.RunOnce(context.Background())
	require.Len(t, results, 1)
	assert.True(t, results[0].AuthFailed)
	assert.Equal(t, StateError, p.Status().State)
}

func TestRunOnceSkipsWhenOffline(t *testing.T) {
	s := testutil.NewTestStore(t)
	f := &fakeFetcher{}
	p := NewPoller(f, s, model.HarvestConfig{}, func() bool { return false }, nil)

	assert.Empty(t, p.RunOnce(context.Background()))
	assert.Empty(t, f.cursors)
	assert.Equal(t, StateOffline, p.Status().State)
}

func TestStartedPollerTagsResults(t *testing.T) {
	p := NewPoller(&fakeFetcher{}, testutil.NewTestStore(t), model.HarvestConfig{
		Mailboxes: []string{"INBOX"},
	}, nil, nil)

	cmd := p.Start()
	require.NotNil(t, cmd)
	msg, ok := cmd().(HarvestResultMsg)
	p.Stop()
	require.True(t, ok)
	assert.Equal(t, "INBOX", msg.Mailbox)
	assert.Same(t, p, msg.Source)
}
