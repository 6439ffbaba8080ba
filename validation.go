package main

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"staffDirectoryViewer/internal/models"
)

const maxFieldLength = 255

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Validator collects validation errors
type Validator struct {
	errors []string
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]string, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(message string) {
	v.errors = append(v.errors, message)
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// ErrorString returns all errors as a single string
func (v *Validator) ErrorString() string {
	return strings.Join(v.errors, "; ")
}

// ValidateLength checks string length constraints
func (v *Validator) ValidateLength(value, field string, min, max int) *Validator {
	length := utf8.RuneCountInString(value)
	if length < min {
		v.AddError(fmt.Sprintf("%s must be at least %d characters long", field, min))
	}
	if max > 0 && length > max {
		v.AddError(fmt.Sprintf("%s must be no more than %d characters long", field, max))
	}
	return v
}

// ValidateEmail validates email format. Empty is allowed.
func (v *Validator) ValidateEmail(email, field string) *Validator {
	if email == "" {
		return v
	}
	if !emailRegex.MatchString(email) {
		v.AddError(fmt.Sprintf("%s must be a valid email address", field))
	}
	return v
}

// ValidateURL validates URL format and schemes
func (v *Validator) ValidateURL(rawURL, field string, allowedSchemes ...string) *Validator {
	if rawURL == "" {
		return v
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		v.AddError(fmt.Sprintf("%s must be a valid URL", field))
		return v
	}

	if u.Scheme == "" {
		v.AddError(fmt.Sprintf("%s must include a scheme (http/https)", field))
		return v
	}

	if len(allowedSchemes) > 0 {
		schemeAllowed := false
		for _, scheme := range allowedSchemes {
			if u.Scheme == scheme {
				schemeAllowed = true
				break
			}
		}
		if !schemeAllowed {
			v.AddError(fmt.Sprintf("%s must use one of the following schemes: %s", field, strings.Join(allowedSchemes, ", ")))
		}
	}

	if u.Host == "" {
		v.AddError(fmt.Sprintf("%s must include a valid host", field))
	}

	return v
}

// ValidateSafeText rejects control characters; staff fields are single line.
func (v *Validator) ValidateSafeText(value, field string) *Validator {
	for _, r := range value {
		if unicode.IsControl(r) {
			v.AddError(fmt.Sprintf("%s contains invalid characters", field))
			break
		}
	}
	return v
}

// ValidateStaffFields checks submitted edit form values. Keys must be
// editable fields; values are expected to be trimmed already.
func ValidateStaffFields(values map[models.Field]string) error {
	validator := NewValidator()

	for _, field := range models.EditableFields {
		value, ok := values[field]
		if !ok {
			continue
		}
		label := field.Label()
		validator.ValidateLength(value, label, 0, maxFieldLength)
		validator.ValidateSafeText(value, label)

		switch field {
		case models.FieldEmail:
			validator.ValidateEmail(value, label)
		case models.FieldPartitionKey:
			validator.ValidateURL(value, label, "http", "https")
		}
	}

	if validator.HasErrors() {
		return &ValidationError{Message: validator.ErrorString()}
	}
	return nil
}

// SanitizeInput trims surrounding whitespace.
func SanitizeInput(input string) string {
	return strings.TrimSpace(input)
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
