package model

import "time"

// CertOperationGet asks a certificate handler to parse certificate data.
const CertOperationGet = "get-cert"

// Certificate is the parsed summary of an S/MIME certificate attached to a
// contact.
type Certificate struct {
	// Email is the subject email address, empty when the certificate has none.
	Email string `json:"email"`

	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	SerialHex string    `json:"serial"`
	RawPEM    string    `json:"-"`
}

// CertRequest is the call made to a certificate handler.
type CertRequest struct {
	Operation string
	CertData  string
}

// CertResult is what a certificate handler resolves to.
type CertResult struct {
	Certificate Certificate
	IsExpired   bool
}
