// Package cert reads S/MIME certificates attached to contacts.
package cert

import (
	"context"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/addressbook/internal/model"
)

// ErrUnsupportedOperation is returned for requests other than get-cert.
var ErrUnsupportedOperation = errors.New("unsupported certificate operation")

var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// Handler parses certificate data in PEM, base64 DER or raw DER form.
type Handler struct {
	// Now is the clock used for expiry checks; time.Now when nil.
	Now func() time.Time
}

// NewHandler returns a handler using the wall clock.
func NewHandler() *Handler {
	return &Handler{Now: time.Now}
}

// Handle serves a certificate request.
func (h *Handler) Handle(_ context.Context, req model.CertRequest) (*model.CertResult, error) {
	if req.Operation != model.CertOperationGet {
		return nil, fmt.Errorf("%q: %w", req.Operation, ErrUnsupportedOperation)
	}

	der, rawPEM, err := decode(req.CertData)
	if err != nil {
		return nil, err
	}
	c, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return &model.CertResult{
		Certificate: model.Certificate{
			Email:     subjectEmail(c),
			Subject:   c.Subject.String(),
			Issuer:    c.Issuer.String(),
			NotBefore: c.NotBefore,
			NotAfter:  c.NotAfter,
			SerialHex: c.SerialNumber.Text(16),
			RawPEM:    rawPEM,
		},
		IsExpired: now().After(c.NotAfter),
	}, nil
}

// decode returns the DER bytes of data and its PEM rendering.
func decode(data string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return nil, "", errors.New("empty certificate data")
	}

	if strings.HasPrefix(trimmed, "-----BEGIN") {
		block, _ := pem.Decode([]byte(trimmed))
		if block == nil || block.Type != "CERTIFICATE" {
			return nil, "", errors.New("no CERTIFICATE block in PEM data")
		}
		return block.Bytes, string(pem.EncodeToMemory(block)), nil
	}

	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(trimmed), ""))
	if err != nil {
		// Raw DER may legitimately start or end with whitespace bytes.
		der = []byte(data)
	}
	return der, string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})), nil
}

// subjectEmail prefers the first SAN email and falls back to the subject's
// emailAddress attribute.
func subjectEmail(c *x509.Certificate) string {
	if len(c.EmailAddresses) > 0 {
		return c.EmailAddresses[0]
	}
	for _, n := range c.Subject.Names {
		if n.Type.Equal(oidEmailAddress) {
			if s, ok := n.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
