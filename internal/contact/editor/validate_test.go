package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/addressbook/internal/model"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		attrs  map[string]string
		cert   *model.Certificate
		valid  bool
		codes  []IssueCode
		fields []string
	}{
		{
			name:  "name only",
			attrs: map[string]string{"firstName": "Jo"},
			valid: true,
		},
		{
			name:  "company counts as a name",
			attrs: map[string]string{"company": "Acme", "email": "info@acme.com"},
			valid: true,
		},
		{
			name:  "valid email but no name",
			attrs: map[string]string{"firstName": "", "lastName": "", "company": "", "email": "a@b.com"},
			codes: []IssueCode{MinimumFieldsRequired},
		},
		{
			name:  "blank name is missing",
			attrs: map[string]string{"firstName": "  ", "email": "a@b.com"},
			codes: []IssueCode{MinimumFieldsRequired},
		},
		{
			name:   "invalid email",
			attrs:  map[string]string{"firstName": "Jo", "email": "not-an-email"},
			codes:  []IssueCode{InvalidEmail},
			fields: []string{"email"},
		},
		{
			name: "every invalid email collected",
			attrs: map[string]string{
				"firstName":  "Jo",
				"email":      "bad",
				"homeEmail":  "ok@x.com",
				"workEmail2": "also bad",
				"otherEmail": "",
			},
			codes:  []IssueCode{InvalidEmail, InvalidEmail},
			fields: []string{"email", "workEmail2"},
		},
		{
			name:   "all issues at once",
			attrs:  map[string]string{"email": "bad"},
			codes:  []IssueCode{MinimumFieldsRequired, InvalidEmail},
			fields: []string{"email"},
		},
		{
			name:   "certificate mismatch is advisory",
			attrs:  map[string]string{"firstName": "Jo", "email": "jo@x.com"},
			cert:   &model.Certificate{Email: "other@x.com"},
			valid:  true,
			codes:  []IssueCode{EmailMismatchWithCert},
			fields: []string{"email"},
		},
		{
			name:  "certificate match ignores case",
			attrs: map[string]string{"firstName": "Jo", "email": "JO@x.com"},
			cert:  &model.Certificate{Email: "jo@x.com"},
			valid: true,
		},
		{
			name:  "only primary emails compared",
			attrs: map[string]string{"firstName": "Jo", "email": "jo@x.com", "email2": "alt@x.com"},
			cert:  &model.Certificate{Email: "jo@x.com"},
			valid: true,
		},
		{
			name:  "certificate without email",
			attrs: map[string]string{"firstName": "Jo", "email": "jo@x.com"},
			cert:  &model.Certificate{Subject: "CN=Jo"},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.attrs, tt.cert)
			assert.Equal(t, tt.valid, res.Valid)

			var codes []IssueCode
			for _, i := range res.Issues {
				codes = append(codes, i.Code)
			}
			assert.ElementsMatch(t, tt.codes, codes)
			assert.ElementsMatch(t, tt.fields, res.Fields)
			assert.Len(t, res.Messages, len(tt.codes))
		})
	}
}

func TestValidationResultHelpers(t *testing.T) {
	res := Validate(map[string]string{"firstName": "Jo", "email": "bad", "email2": "worse"}, nil)

	assert.True(t, res.Has(InvalidEmail))
	assert.False(t, res.Has(MinimumFieldsRequired))
	assert.Len(t, res.FieldIssues("email2"), 1)
	assert.Empty(t, res.FieldIssues("firstName"))
}
