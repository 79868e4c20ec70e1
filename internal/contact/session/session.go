// Package session runs one contact edit session: it owns the original record
// and the current editor state, and drives the save pipeline (offline check,
// validation, normalization, mutation).
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/model"
)

// Mutator persists contacts.
type Mutator interface {
	CreateContact(ctx context.Context, attrs map[string]string) (*model.Contact, error)
	ModifyContact(ctx context.Context, id string, changes map[string]*string) (*model.Contact, error)
}

// CertificateHandler parses certificate data on the session's behalf.
type CertificateHandler interface {
	Handle(ctx context.Context, req model.CertRequest) (*model.CertResult, error)
}

// BlobUploader stores binary data and returns its attachment id.
type BlobUploader interface {
	UploadBlob(ctx context.Context, data []byte) (string, error)
}

// Status is where a session is in its lifecycle.
type Status int

const (
	StatusEditing Status = iota
	StatusSaving
	StatusSaved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusFailed:
		return "failed"
	default:
		return "editing"
	}
}

// ErrNoCollaborator is returned when an operation needs a collaborator the
// session was created without.
var ErrNoCollaborator = errors.New("collaborator not configured")

// ErrSaveInProgress is returned when Save is called while another save is
// still waiting on the mutator.
var ErrSaveInProgress = errors.New("save already in progress")

// Options wires a session to its collaborators.
type Options struct {
	Mutator      Mutator
	Certificates CertificateHandler
	Blobs        BlobUploader

	// Online reports connectivity. A nil func means always online.
	Online func() bool

	Logger *zap.Logger
}

// Session is a single contact edit session. Its methods are safe to call
// from the UI loop and from commands running concurrently with it.
type Session struct {
	mu sync.Mutex

	original    *model.Contact
	state       editor.State
	cert        *model.Certificate
	certExpired bool
	status      Status
	lastErr     error
	validation  editor.ValidationResult

	opts   Options
	logger *zap.Logger
}

// New starts a session for a contact that does not exist yet.
func New(opts Options) *Session {
	return Open(nil, opts)
}

// Open starts a session editing contact. A nil contact creates a new one.
func Open(contact *model.Contact, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{opts: opts, logger: logger.Named("session")}
	s.reset(contact)
	return s
}

func (s *Session) reset(contact *model.Contact) {
	s.original = contact
	var attrs map[string]string
	if contact != nil {
		attrs = editor.DecodeIM(contact.Attributes)
	}
	s.state = editor.NewState(attrs)
	s.status = StatusEditing
	s.lastErr = nil
	s.validation = editor.ValidationResult{Valid: true}
}

// State returns the current editor state.
func (s *Session) State() editor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Original returns the record the session was opened with, nil for new
// contacts.
func (s *Session) Original() *model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original
}

// IsNew reports whether saving will create a contact.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original == nil
}

// Status returns the lifecycle status and the error of the last failed save.
func (s *Session) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.lastErr
}

// Certificate returns the attached certificate and whether it has expired.
func (s *Session) Certificate() (*model.Certificate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cert, s.certExpired
}

// Validation returns the result of the most recent Validate or Save.
func (s *Session) Validation() editor.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validation
}

// Apply runs reducer against the current state and swaps in the result when
// it succeeds. A failed reducer leaves the state as it was. Edits are refused
// with ErrSaveInProgress while a save is running.
func (s *Session) Apply(reducer func(editor.State) (editor.State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSaving {
		return ErrSaveInProgress
	}
	next, err := reducer(s.state)
	if err != nil {
		return err
	}
	s.state = next
	s.status = StatusEditing
	return nil
}

// Dirty reports whether saving would change anything.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.original == nil {
		return len(editor.Normalize(s.state.Attributes())) > 0
	}
	return !editor.BuildPayload(s.original.Attributes, s.state).Empty()
}

// Validate runs the validation gate against the current state without
// saving.
func (s *Session) Validate() editor.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validation = editor.Validate(s.state.Attributes(), s.cert)
	return s.validation
}

// AttachCertificate asks the certificate handler to parse certData and
// stores the result with the contact.
func (s *Session) AttachCertificate(ctx context.Context, certData string) (*model.CertResult, error) {
	if s.opts.Certificates == nil {
		return nil, fmt.Errorf("attaching certificate: %w", ErrNoCollaborator)
	}

	res, err := s.opts.Certificates.Handle(ctx, model.CertRequest{
		Operation: model.CertOperationGet,
		CertData:  certData,
	})
	if err != nil {
		return nil, fmt.Errorf("reading certificate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusSaving {
		return nil, ErrSaveInProgress
	}
	cert := res.Certificate
	s.cert = &cert
	s.certExpired = res.IsExpired
	stored := cert.RawPEM
	if stored == "" {
		stored = strings.TrimSpace(certData)
	}
	next, err := s.state.SetValue(fields.Certificate, stored)
	if err != nil {
		return nil, err
	}
	s.state = next

	s.logger.Info("certificate attached",
		zap.String("email", cert.Email),
		zap.Bool("expired", res.IsExpired),
	)
	return res, nil
}

// LoadCertificate parses the certificate already stored on the contact, if
// any, so validation can compare against it.
func (s *Session) LoadCertificate(ctx context.Context) error {
	v, _ := s.State().Value(fields.Certificate)
	if strings.TrimSpace(v) == "" || s.opts.Certificates == nil {
		return nil
	}
	_, err := s.AttachCertificate(ctx, v)
	return err
}

// RemoveCertificate detaches the certificate.
func (s *Session) RemoveCertificate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusSaving {
		return ErrSaveInProgress
	}
	next, err := s.state.SetValue(fields.Certificate, "")
	if err != nil {
		return err
	}
	s.cert = nil
	s.certExpired = false
	s.state = next
	return nil
}

// SetPhoto uploads base64-encoded image data and stores the returned
// attachment id as the contact's image.
func (s *Session) SetPhoto(ctx context.Context, base64Data string) (string, error) {
	if s.opts.Blobs == nil {
		return "", fmt.Errorf("uploading photo: %w", ErrNoCollaborator)
	}

	// Accept data URLs as well as bare base64.
	if _, data, ok := strings.Cut(base64Data, ","); ok && strings.HasPrefix(base64Data, "data:") {
		base64Data = data
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(base64Data))
	if err != nil {
		return "", fmt.Errorf("decoding photo: %w", err)
	}

	id, err := s.opts.Blobs.UploadBlob(ctx, data)
	if err != nil {
		return "", fmt.Errorf("uploading photo: %w", err)
	}

	err = s.Apply(func(st editor.State) (editor.State, error) {
		return st.SetValue(fields.Image, id)
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("photo uploaded", zap.String("blob_id", id), zap.Int("bytes", len(data)))
	return id, nil
}

// Save validates, normalizes and persists the current state. On failure the
// state is kept so the user can retry; nothing is retried automatically.
func (s *Session) Save(ctx context.Context) (*model.Contact, error) {
	s.mu.Lock()
	if s.status == StatusSaving {
		s.mu.Unlock()
		return nil, ErrSaveInProgress
	}

	if s.opts.Online != nil && !s.opts.Online() {
		s.lastErr = &SaveError{Kind: OfflineBlocked, Kinds: []ErrorKind{OfflineBlocked}}
		s.status = StatusFailed
		s.mu.Unlock()
		s.logger.Info("save blocked while offline")
		return nil, s.lastErr
	}

	attrs := s.state.Attributes()
	s.validation = editor.Validate(attrs, s.cert)
	for _, issue := range s.validation.Issues {
		if !issue.Blocking() {
			s.logger.Warn("advisory validation issue",
				zap.String("code", string(issue.Code)),
				zap.String("field", issue.Field),
			)
		}
	}
	if !s.validation.Valid {
		saveErr := validationError(s.validation)
		s.lastErr = saveErr
		s.status = StatusEditing
		s.mu.Unlock()
		return nil, saveErr
	}

	if err := s.state.CheckConsistency(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("checking editor state: %w", err)
	}

	if s.opts.Mutator == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("saving contact: %w", ErrNoCollaborator)
	}

	original := s.original
	var originalAttrs map[string]string
	if original != nil {
		originalAttrs = original.Attributes
	}
	payload := editor.BuildPayload(originalAttrs, s.state)
	if !payload.IsCreate() && payload.Empty() {
		s.status = StatusSaved
		s.lastErr = nil
		s.mu.Unlock()
		s.logger.Debug("nothing to save", zap.String("contact_id", original.ID))
		return original, nil
	}
	s.status = StatusSaving
	s.mu.Unlock()

	var (
		saved *model.Contact
		err   error
	)
	if payload.IsCreate() {
		saved, err = s.opts.Mutator.CreateContact(ctx, payload.Create)
	} else {
		saved, err = s.opts.Mutator.ModifyContact(ctx, original.ID, payload.Changes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusFailed
		s.lastErr = &SaveError{Kind: NetworkSaveFailure, Kinds: []ErrorKind{NetworkSaveFailure}, Err: err}
		s.logger.Error("saving contact failed", zap.Error(err))
		return nil, s.lastErr
	}

	validation := s.validation
	s.reset(saved)
	s.validation = validation
	s.status = StatusSaved
	s.logger.Info("contact saved",
		zap.String("contact_id", saved.ID),
		zap.Bool("created", payload.IsCreate()),
		zap.Int("changes", len(payload.Changes)),
	)
	return saved, nil
}
