package validation

import (
	"errors"
	"testing"

	"github.com/jmcnally/provisor/internal/fieldcfg"
)

func TestBuildCoversEveryKey(t *testing.T) {
	rules := Build(fieldcfg.Defaults())
	if len(rules) != len(fieldcfg.AllKeys()) {
		t.Fatalf("expected %d rules, got %d", len(fieldcfg.AllKeys()), len(rules))
	}
	for _, k := range fieldcfg.AllKeys() {
		if _, ok := rules[k]; !ok {
			t.Errorf("missing rule for %q", k)
		}
	}
}

func TestBuildDerivesRequiredAndFormat(t *testing.T) {
	configs := fieldcfg.Defaults()
	configs[fieldcfg.KeyTitle] = &fieldcfg.BasicConfig{Required: true}
	configs[fieldcfg.KeyDepartment] = &fieldcfg.SelectConfig{Required: true, UseList: true}

	rules := Build(configs)

	if !rules[fieldcfg.KeyFirstName].Required {
		t.Error("firstName should be required by default")
	}
	if !rules[fieldcfg.KeyTitle].Required {
		t.Error("title required flag not derived")
	}
	if !rules[fieldcfg.KeyDepartment].Required {
		t.Error("department required flag not derived")
	}
	if rules[fieldcfg.KeyManager].Required {
		t.Error("manager should be optional by default")
	}
	if rules[fieldcfg.KeyEmailUsername].Format != FormatEmail {
		t.Error("emailUsername should carry the email format rule")
	}
	if rules[fieldcfg.KeyFirstName].Format != FormatNone {
		t.Error("firstName should have no format rule")
	}
}

func TestBuildHiddenFieldNeverRequired(t *testing.T) {
	configs := fieldcfg.Defaults()
	configs[fieldcfg.KeyApps] = &fieldcfg.VisibilityConfig{Required: true, HideField: true}

	rules := Build(configs)
	if rules[fieldcfg.KeyApps].Required {
		t.Error("a hidden field must not be required")
	}
}

func TestBuildFallsBackToDefaultsForMissingEntries(t *testing.T) {
	rules := Build(map[fieldcfg.FieldKey]fieldcfg.Config{})
	if !rules[fieldcfg.KeyLastName].Required {
		t.Error("expected default rule for missing lastName config")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		value   string
		wantErr error
	}{
		{"required present", Rule{Required: true}, "Ada", nil},
		{"required empty", Rule{Required: true}, "", ErrRequired},
		{"required whitespace", Rule{Required: true}, "   ", ErrRequired},
		{"optional empty", Rule{Required: false}, "", nil},
		{"valid email", Rule{Required: true, Format: FormatEmail}, "ada@corp.example.com", nil},
		{"email missing at", Rule{Required: true, Format: FormatEmail}, "ada.example.com", ErrInvalidEmail},
		{"email missing domain dot", Rule{Required: true, Format: FormatEmail}, "ada@corp", ErrInvalidEmail},
		{"email with spaces", Rule{Required: true, Format: FormatEmail}, "ada lovelace@corp.example.com", ErrInvalidEmail},
		{"optional email still checked when present", Rule{Required: false, Format: FormatEmail}, "not-an-email", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.rule, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check(%+v, %q) = %v, want %v", tt.rule, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	rules := Build(fieldcfg.Defaults())

	values := map[fieldcfg.FieldKey]string{
		fieldcfg.KeyFirstName:     "Ada",
		fieldcfg.KeyLastName:      "",
		fieldcfg.KeyEmailUsername: "bad-email",
		fieldcfg.KeyPassword:      "Cedar42!",
	}

	failures := ValidateAll(rules, values)

	if _, ok := failures[fieldcfg.KeyLastName]; !ok {
		t.Error("expected failure for empty required lastName")
	}
	if _, ok := failures[fieldcfg.KeyEmailUsername]; !ok {
		t.Error("expected failure for malformed email")
	}
	if _, ok := failures[fieldcfg.KeyFirstName]; ok {
		t.Error("unexpected failure for firstName")
	}
}
