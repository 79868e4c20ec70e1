package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/addressbook/internal/contact/editor"
)

// ErrorKind classifies why a save did not go through.
type ErrorKind int

const (
	MissingRequiredFields ErrorKind = iota + 1
	InvalidEmailFormat
	CertificateEmailMismatch
	NetworkSaveFailure
	OfflineBlocked
)

func (k ErrorKind) String() string {
	switch k {
	case MissingRequiredFields:
		return "missing required fields"
	case InvalidEmailFormat:
		return "invalid email format"
	case CertificateEmailMismatch:
		return "certificate email mismatch"
	case NetworkSaveFailure:
		return "save failed"
	case OfflineBlocked:
		return "offline"
	default:
		return "unknown"
	}
}

// SaveError is returned by Session.Save. Validation failures carry every
// kind found and the full validation result; a failed mutation wraps the
// collaborator's error.
type SaveError struct {
	Kind       ErrorKind
	Kinds      []ErrorKind
	Validation editor.ValidationResult
	Err        error
}

func (e *SaveError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case len(e.Validation.Messages) > 0:
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Validation.Messages, "; "))
	default:
		return e.Kind.String()
	}
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// Has reports whether the error includes kind.
func (e *SaveError) Has(kind ErrorKind) bool {
	if e.Kind == kind {
		return true
	}
	for _, k := range e.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsKind reports whether err (or any error in its chain) is a SaveError
// including kind.
func IsKind(err error, kind ErrorKind) bool {
	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		return false
	}
	return saveErr.Has(kind)
}

// kindOf maps a validation issue onto the save error taxonomy.
func kindOf(code editor.IssueCode) ErrorKind {
	switch code {
	case editor.MinimumFieldsRequired:
		return MissingRequiredFields
	case editor.InvalidEmail:
		return InvalidEmailFormat
	default:
		return CertificateEmailMismatch
	}
}

// validationError builds the SaveError for a result with blocking issues.
func validationError(res editor.ValidationResult) *SaveError {
	e := &SaveError{Validation: res}
	seen := make(map[ErrorKind]bool)
	for _, issue := range res.Issues {
		if !issue.Blocking() {
			continue
		}
		k := kindOf(issue.Code)
		if seen[k] {
			continue
		}
		seen[k] = true
		if e.Kind == 0 {
			e.Kind = k
		}
		e.Kinds = append(e.Kinds, k)
	}
	return e
}
