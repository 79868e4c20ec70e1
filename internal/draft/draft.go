// Package draft writes composed messages to the drafts directory as RFC 5322
// files that any mail client can pick up.
package draft

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// ErrNoRecipients is returned when a draft has nobody to send to.
var ErrNoRecipients = errors.New("draft has no recipients")

// Draft is a plain text message.
type Draft struct {
	From    *mail.Address
	To      []*mail.Address
	Cc      []*mail.Address
	Subject string
	Body    string
	Date    time.Time
}

// Writer saves drafts into Dir.
type Writer struct {
	Dir string
	// Now is the clock stamped on drafts; time.Now when nil.
	Now func() time.Time
}

// NewWriter returns a writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// Save writes d to a new .eml file and returns its path.
func (w *Writer) Save(d Draft) (string, error) {
	if len(d.To) == 0 && len(d.Cc) == 0 {
		return "", ErrNoRecipients
	}
	if err := os.MkdirAll(w.Dir, 0o700); err != nil {
		return "", fmt.Errorf("creating drafts directory: %w", err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if d.Date.IsZero() {
		d.Date = now()
	}

	name := d.Date.UTC().Format("20060102T150405Z") + "-" + uuid.New().String()[:8] + ".eml"
	path := filepath.Join(w.Dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating draft file: %w", err)
	}
	if err := Write(f, d); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing draft file: %w", err)
	}
	return path, nil
}

// Write renders d as a single part text/plain message.
func Write(out io.Writer, d Draft) error {
	var h mail.Header
	h.SetDate(d.Date)
	if d.From != nil {
		h.SetAddressList("From", []*mail.Address{d.From})
	}
	h.SetAddressList("To", d.To)
	if len(d.Cc) > 0 {
		h.SetAddressList("Cc", d.Cc)
	}
	h.SetSubject(d.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}

	body, err := mail.CreateSingleInlineWriter(out, h)
	if err != nil {
		return fmt.Errorf("writing draft header: %w", err)
	}
	text := strings.ReplaceAll(d.Body, "\r\n", "\n")
	if _, err := io.WriteString(body, strings.ReplaceAll(text, "\n", "\r\n")); err != nil {
		return fmt.Errorf("writing draft body: %w", err)
	}
	return body.Close()
}

// Load reads a draft file written by Save.
func Load(path string) (*Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening draft: %w", err)
	}
	defer f.Close()

	mr, err := mail.CreateReader(f)
	if err != nil {
		return nil, fmt.Errorf("parsing draft: %w", err)
	}
	defer mr.Close()

	d := &Draft{}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		d.From = from[0]
	}
	if d.To, err = mr.Header.AddressList("To"); err != nil {
		return nil, fmt.Errorf("parsing To: %w", err)
	}
	if d.Cc, err = mr.Header.AddressList("Cc"); err != nil {
		return nil, fmt.Errorf("parsing Cc: %w", err)
	}
	d.Subject, _ = mr.Header.Subject()
	d.Date, _ = mr.Header.Date()

	part, err := mr.NextPart()
	if err != nil {
		return nil, fmt.Errorf("reading draft body: %w", err)
	}
	body, err := io.ReadAll(part.Body)
	if err != nil {
		return nil, fmt.Errorf("reading draft body: %w", err)
	}
	d.Body = strings.ReplaceAll(string(body), "\r\n", "\n")
	return d, nil
}
