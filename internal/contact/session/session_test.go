package session

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/model"
)

type fakeMutator struct {
	created  []map[string]string
	modified []map[string]*string
	err      error
}

func (f *fakeMutator) CreateContact(_ context.Context, attrs map[string]string) (*model.Contact, error) {
	f.created = append(f.created, attrs)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Contact{ID: "c1", Attributes: attrs}, nil
}

func (f *fakeMutator) ModifyContact(_ context.Context, id string, changes map[string]*string) (*model.Contact, error) {
	f.modified = append(f.modified, changes)
	if f.err != nil {
		return nil, f.err
	}
	attrs := map[string]string{}
	for k, v := range changes {
		if v != nil {
			attrs[k] = *v
		}
	}
	return &model.Contact{ID: id, Attributes: attrs}, nil
}

func (f *fakeMutator) calls() int {
	return len(f.created) + len(f.modified)
}

type fakeCerts struct {
	req    model.CertRequest
	result *model.CertResult
}

func (f *fakeCerts) Handle(_ context.Context, req model.CertRequest) (*model.CertResult, error) {
	f.req = req
	if f.result == nil {
		return nil, errors.New("bad certificate")
	}
	return f.result, nil
}

type fakeBlobs struct {
	data []byte
}

func (f *fakeBlobs) UploadBlob(_ context.Context, data []byte) (string, error) {
	f.data = data
	return "blob-1", nil
}

func set(key, value string) func(editor.State) (editor.State, error) {
	return func(s editor.State) (editor.State, error) {
		return s.SetValue(key, value)
	}
}

func TestSaveCreatesNormalizedContact(t *testing.T) {
	m := &fakeMutator{}
	s := New(Options{Mutator: m})
	require.True(t, s.IsNew())

	require.NoError(t, s.Apply(set("firstName", "Jo")))
	require.NoError(t, s.Apply(func(st editor.State) (editor.State, error) {
		st, _, err := st.AddField(editor.AddOp{AfterKey: "email", NewBaseName: "email", Group: fields.GroupEmail})
		return st, err
	}))
	require.NoError(t, s.Apply(set("email2", "jo@x.com")))
	assert.ErrorIs(t, s.Apply(set("jabber", "x")), editor.ErrUnknownKey, "jabber is not part of a new state")

	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	require.Len(t, m.created, 1)
	assert.Equal(t, map[string]string{"firstName": "Jo", "email": "jo@x.com"}, m.created[0])
	assert.Equal(t, "c1", saved.ID)

	status, lastErr := s.Status()
	assert.Equal(t, StatusSaved, status)
	assert.NoError(t, lastErr)
	assert.False(t, s.IsNew())
	v, _ := s.State().Value("email")
	assert.Equal(t, "jo@x.com", v)
}

func TestSaveModifySendsChangesOnly(t *testing.T) {
	m := &fakeMutator{}
	contact := &model.Contact{ID: "c9", Attributes: map[string]string{
		"firstName": "Jo",
		"email":     "a@x.com",
		"email2":    "b@x.com",
		"skype":     "skype://jo",
	}}
	s := Open(contact, Options{Mutator: m})

	v, _ := s.State().Value("skype")
	assert.Equal(t, "jo", v, "IM values are decoded on open")

	require.NoError(t, s.Apply(func(st editor.State) (editor.State, error) {
		return st.RemoveField(editor.RemoveOp{AttributeKey: "email", Group: fields.GroupEmail})
	}))
	require.NoError(t, s.Apply(set("lastName", "Doe")))
	assert.True(t, s.Dirty())

	_, err := s.Save(context.Background())
	require.NoError(t, err)
	require.Len(t, m.modified, 1)

	changes := m.modified[0]
	assert.Len(t, changes, 3)
	assert.Equal(t, "b@x.com", *changes["email"])
	assert.Nil(t, changes["email2"])
	assert.Equal(t, "Doe", *changes["lastName"])
}

func TestSaveWithoutChangesSkipsMutator(t *testing.T) {
	m := &fakeMutator{}
	contact := &model.Contact{ID: "c2", Attributes: map[string]string{"firstName": "Jo"}}
	s := Open(contact, Options{Mutator: m})
	assert.False(t, s.Dirty())

	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Same(t, contact, saved)
	assert.Zero(t, m.calls())
}

func TestSaveOfflineShortCircuits(t *testing.T) {
	m := &fakeMutator{}
	s := New(Options{Mutator: m, Online: func() bool { return false }})
	require.NoError(t, s.Apply(set("email", "not-an-email")))

	_, err := s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, OfflineBlocked))
	assert.False(t, IsKind(err, InvalidEmailFormat), "validation must not run")
	assert.Zero(t, m.calls())
	assert.True(t, s.Validation().Valid)

	status, _ := s.Status()
	assert.Equal(t, StatusFailed, status)
}

func TestSaveValidationFailure(t *testing.T) {
	m := &fakeMutator{}
	s := New(Options{Mutator: m})
	require.NoError(t, s.Apply(set("email", "not-an-email")))

	_, err := s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, MissingRequiredFields))
	assert.True(t, IsKind(err, InvalidEmailFormat))
	assert.False(t, IsKind(err, NetworkSaveFailure))
	assert.Zero(t, m.calls())

	var saveErr *SaveError
	require.True(t, errors.As(err, &saveErr))
	assert.Equal(t, MissingRequiredFields, saveErr.Kind)
	assert.Contains(t, saveErr.Validation.Fields, "email")

	v, _ := s.State().Value("email")
	assert.Equal(t, "not-an-email", v, "state is kept for correction")
	status, _ := s.Status()
	assert.Equal(t, StatusEditing, status)
}

func TestSaveNetworkFailureKeepsStateForRetry(t *testing.T) {
	boom := errors.New("connection reset")
	m := &fakeMutator{err: boom}
	s := New(Options{Mutator: m})
	require.NoError(t, s.Apply(set("company", "Acme")))

	_, err := s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, NetworkSaveFailure))
	assert.True(t, errors.Is(err, boom))
	assert.Len(t, m.created, 1, "no automatic retry")

	status, lastErr := s.Status()
	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, err, lastErr)
	v, _ := s.State().Value("company")
	assert.Equal(t, "Acme", v)

	m.err = nil
	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", saved.Attributes["company"])
}

func TestAttachCertificate(t *testing.T) {
	certs := &fakeCerts{result: &model.CertResult{
		Certificate: model.Certificate{Email: "other@x.com", RawPEM: "-----BEGIN CERTIFICATE-----"},
		IsExpired:   true,
	}}
	m := &fakeMutator{}
	s := New(Options{Mutator: m, Certificates: certs})
	require.NoError(t, s.Apply(set("firstName", "Jo")))
	require.NoError(t, s.Apply(set("email", "jo@x.com")))

	res, err := s.AttachCertificate(context.Background(), "raw-data")
	require.NoError(t, err)
	assert.True(t, res.IsExpired)
	assert.Equal(t, model.CertOperationGet, certs.req.Operation)
	assert.Equal(t, "raw-data", certs.req.CertData)

	cert, expired := s.Certificate()
	require.NotNil(t, cert)
	assert.Equal(t, "other@x.com", cert.Email)
	assert.True(t, expired)

	// The mismatch is advisory: the save goes through and the warning stays.
	_, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Validation().Has(editor.EmailMismatchWithCert))
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", m.created[0][fields.Certificate])
}

func TestAttachCertificateErrors(t *testing.T) {
	s := New(Options{})
	_, err := s.AttachCertificate(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrNoCollaborator))

	s = New(Options{Certificates: &fakeCerts{}})
	_, err = s.AttachCertificate(context.Background(), "x")
	assert.Error(t, err)
	cert, _ := s.Certificate()
	assert.Nil(t, cert)
}

func TestSetPhoto(t *testing.T) {
	blobs := &fakeBlobs{}
	s := New(Options{Blobs: blobs})

	raw := []byte{0x89, 'P', 'N', 'G'}
	id, err := s.SetPhoto(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "blob-1", id)
	assert.Equal(t, raw, blobs.data)
	v, _ := s.State().Value(fields.Image)
	assert.Equal(t, "blob-1", v)

	_, err = s.SetPhoto(context.Background(), "%%%")
	assert.Error(t, err)
}

func TestApplyFailureKeepsState(t *testing.T) {
	s := New(Options{})
	before := s.State()

	err := s.Apply(func(st editor.State) (editor.State, error) {
		return st.RemoveField(editor.RemoveOp{AttributeKey: "email7"})
	})
	assert.True(t, errors.Is(err, editor.ErrUnknownKey))
	assert.Equal(t, before.Visible(), s.State().Visible())
}

// gatedMutator blocks CreateContact until release is closed.
type gatedMutator struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedMutator) CreateContact(_ context.Context, attrs map[string]string) (*model.Contact, error) {
	close(g.entered)
	<-g.release
	return &model.Contact{ID: "c1", Attributes: attrs}, nil
}

func (g *gatedMutator) ModifyContact(_ context.Context, id string, _ map[string]*string) (*model.Contact, error) {
	return &model.Contact{ID: id}, nil
}

func TestEditsRefusedWhileSaving(t *testing.T) {
	g := &gatedMutator{entered: make(chan struct{}), release: make(chan struct{})}
	s := New(Options{Mutator: g})
	require.NoError(t, s.Apply(set(fields.FirstName, "Jo")))

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background())
		done <- err
	}()
	<-g.entered

	st, _ := s.Status()
	assert.Equal(t, StatusSaving, st)
	assert.ErrorIs(t, s.Apply(set(fields.LastName, "Smith")), ErrSaveInProgress)
	assert.ErrorIs(t, s.RemoveCertificate(), ErrSaveInProgress)
	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(g.release)
	require.NoError(t, <-done)

	v, _ := s.State().Value(fields.LastName)
	assert.Empty(t, v)
	assert.False(t, s.Dirty())

	require.NoError(t, s.Apply(set(fields.LastName, "Smith")))
	assert.True(t, s.Dirty())
}
