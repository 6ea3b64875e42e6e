// Package validation derives per-field validation rules from a saved field
// configuration snapshot. The rule set is a pure projection: it is rebuilt
// whenever the snapshot changes and never mutated in place.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmcnally/provisor/internal/fieldcfg"
)

// Validation errors surfaced to the form layer. They block submission
// locally; a request failing validation never reaches the directory.
var (
	ErrRequired     = errors.New("value is required")
	ErrInvalidEmail = errors.New("value must be a valid email username")
)

// Format is an additional shape constraint on a field's value.
type Format string

const (
	FormatNone  Format = ""
	FormatEmail Format = "email"
)

// Rule is the validation rule for one field.
type Rule struct {
	Required bool   `json:"required"`
	Format   Format `json:"format,omitempty"`
}

// emailShape accepts local@domain with a dotted domain part.
var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Build derives the rule for every field key from the given snapshot.
// Required fields get a non-empty rule (plus email shape for the email
// username); optional fields accept empty values. A field hidden from the
// form is never required, since the operator cannot fill it.
func Build(configs map[fieldcfg.FieldKey]fieldcfg.Config) map[fieldcfg.FieldKey]Rule {
	rules := make(map[fieldcfg.FieldKey]Rule, len(fieldcfg.AllKeys()))

	for _, key := range fieldcfg.AllKeys() {
		cfg, ok := configs[key]
		if !ok || cfg == nil {
			cfg = fieldcfg.Default(key)
		}

		rule := Rule{Required: cfg.IsRequired()}

		switch key {
		case fieldcfg.KeyFirstName, fieldcfg.KeyLastName, fieldcfg.KeyTitle, fieldcfg.KeyManager:
			// Plain non-empty check only.
		case fieldcfg.KeyEmailUsername:
			rule.Format = FormatEmail
		case fieldcfg.KeyPassword:
			// Non-empty check; policy conformance is the generator's concern.
		case fieldcfg.KeyDepartment, fieldcfg.KeyEmployeeType:
			// Non-empty check when required; option membership is enforced
			// by the picker, not here.
		case fieldcfg.KeyApps, fieldcfg.KeyGroups, fieldcfg.KeySendActivationEmail:
			if vc, ok := cfg.(*fieldcfg.VisibilityConfig); ok && vc.HideField {
				rule.Required = false
			}
		}

		rules[key] = rule
	}

	return rules
}

// Check validates a single value against a rule.
func Check(rule Rule, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if rule.Required {
			return ErrRequired
		}
		return nil
	}
	if rule.Format == FormatEmail && !emailShape.MatchString(trimmed) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateAll checks every provided value against its rule and returns a
// map of field key to failure message. An empty map means the submission
// may proceed.
func ValidateAll(rules map[fieldcfg.FieldKey]Rule, values map[fieldcfg.FieldKey]string) map[fieldcfg.FieldKey]string {
	failures := make(map[fieldcfg.FieldKey]string)
	for key, rule := range rules {
		if err := Check(rule, values[key]); err != nil {
			failures[key] = fmt.Sprintf("%s: %s", key, err.Error())
		}
	}
	return failures
}
