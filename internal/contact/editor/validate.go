package editor

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/model"
)

var validate = validator.New()

// IssueCode identifies a validation finding.
type IssueCode string

const (
	MinimumFieldsRequired IssueCode = "MinimumFieldsRequired"
	InvalidEmail          IssueCode = "InvalidEmail"
	EmailMismatchWithCert IssueCode = "EmailMismatchWithCert"
)

// Issue is one validation finding. Field is empty for record-level issues.
type Issue struct {
	Code    IssueCode
	Field   string
	Message string
}

// Blocking reports whether the issue prevents saving. A certificate email
// mismatch is advisory.
func (i Issue) Blocking() bool {
	return i.Code != EmailMismatchWithCert
}

// ValidationResult collects every finding of one validation pass.
type ValidationResult struct {
	Valid    bool
	Messages []string
	Fields   []string
	Issues   []Issue
}

// Has reports whether the result contains an issue with code.
func (r ValidationResult) Has(code IssueCode) bool {
	for _, i := range r.Issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

// FieldIssues returns the issues attached to key.
func (r ValidationResult) FieldIssues(key string) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Field == key {
			out = append(out, i)
		}
	}
	return out
}

// requiredAny lists the fields of which at least one must be non-blank.
var requiredAny = []string{fields.FirstName, fields.LastName, fields.Company}

// Validate checks attrs before save. cert is the attached certificate, or
// nil. Every applicable issue is returned.
func Validate(attrs map[string]string, cert *model.Certificate) ValidationResult {
	res := ValidationResult{Valid: true}
	add := func(i Issue) {
		res.Issues = append(res.Issues, i)
		res.Messages = append(res.Messages, i.Message)
		if i.Field != "" {
			res.Fields = append(res.Fields, i.Field)
		}
		if i.Blocking() {
			res.Valid = false
		}
	}

	named := false
	for _, k := range requiredAny {
		if strings.TrimSpace(attrs[k]) != "" {
			named = true
			break
		}
	}
	if !named {
		add(Issue{
			Code:    MinimumFieldsRequired,
			Message: "a first name, last name or company is required",
		})
	}

	for _, k := range sortedEmailKeys(attrs) {
		v := strings.TrimSpace(attrs[k])
		if err := validate.Var(v, "email"); err != nil {
			add(Issue{Code: InvalidEmail, Field: k, Message: "invalid email address: " + v})
		}
	}

	if cert != nil && cert.Email != "" {
		for _, k := range sortedEmailKeys(attrs) {
			if fields.Classify(k).Position != 1 {
				continue
			}
			v := strings.TrimSpace(attrs[k])
			if !strings.EqualFold(v, cert.Email) {
				add(Issue{
					Code:    EmailMismatchWithCert,
					Field:   k,
					Message: "email " + v + " does not match certificate email " + cert.Email,
				})
			}
		}
	}

	return res
}

// sortedEmailKeys returns the populated email-group keys in label then
// position order.
func sortedEmailKeys(attrs map[string]string) []string {
	var keys []string
	for k, v := range attrs {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if fields.Classify(k).Group == fields.GroupEmail {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := fields.Classify(keys[i]), fields.Classify(keys[j])
		if a.Label != b.Label {
			return fields.LabelIndex(a.Label) < fields.LabelIndex(b.Label)
		}
		return a.Position < b.Position
	})
	return keys
}
