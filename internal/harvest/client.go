// Package harvest collects correspondent addresses from mail headers so the
// recipient field can suggest people who are not saved contacts.
package harvest

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/store"
)

// Batch is the result of harvesting one mailbox past a cursor.
type Batch struct {
	Cursor         store.HarvestCursor
	Correspondents []model.Correspondent
}

// Fetcher reads correspondents from a mailbox, starting after cursor.
type Fetcher interface {
	Fetch(ctx context.Context, cursor store.HarvestCursor, limit int) (*Batch, error)
}

// IMAPClient wraps go-imap v2 for reading envelopes from an IMAP server.
type IMAPClient struct {
	host     string
	port     int
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(cfg model.HarvestConfig, password string) *IMAPClient {
	return &IMAPClient{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: password,
		tls:      cfg.TLS,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *IMAPClient) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + strconv.Itoa(c.port)

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			Host:    c.host,
			Message: fmt.Sprintf("authentication failed for %s: %v", c.username, err),
		}
	}

	return client, nil
}

// Validate connects, authenticates and logs out again.
func (c *IMAPClient) Validate(ctx context.Context) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	return client.Logout().Wait()
}

// Fetch selects the cursor's mailbox and reads envelopes of messages newer
// than the cursor, at most limit of the most recent ones. A changed
// UIDVALIDITY restarts the mailbox from the beginning.
func (c *IMAPClient) Fetch(ctx context.Context, cursor store.HarvestCursor, limit int) (*Batch, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	selected, err := client.Select(cursor.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", cursor.Mailbox, err)
	}

	next := cursor
	if selected.UIDValidity != cursor.UIDValidity {
		next.UIDValidity = selected.UIDValidity
		next.LastUID = 0
	}
	batch := &Batch{Cursor: next}

	criteria := &imap.SearchCriteria{
		UID: []imap.UIDSet{{imap.UIDRange{Start: imap.UID(next.LastUID + 1), Stop: 0}}},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", cursor.Mailbox, err)
	}

	uids := newerThan(searchData.AllUIDs(), next.LastUID)
	if len(uids) == 0 {
		return batch, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		UID:      true,
	})
	defer fetchCmd.Close()

	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		batch.Correspondents = append(batch.Correspondents, fromEnvelope(buf.Envelope)...)
		if uint32(buf.UID) > batch.Cursor.LastUID {
			batch.Cursor.LastUID = uint32(buf.UID)
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return batch, fmt.Errorf("fetching envelopes: %w", err)
	}

	return batch, nil
}

// newerThan drops UIDs at or below last. A "n:*" search always matches the
// highest message, even when it is older than n.
func newerThan(uids []imap.UID, last uint32) []imap.UID {
	out := make([]imap.UID, 0, len(uids))
	for _, uid := range uids {
		if uint32(uid) > last {
			out = append(out, uid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
