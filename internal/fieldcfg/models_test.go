package fieldcfg

import (
	"reflect"
	"testing"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  FieldKey
		cfg  Config
	}{
		{
			name: "basic required",
			key:  KeyFirstName,
			cfg:  &BasicConfig{Required: true},
		},
		{
			name: "basic optional",
			key:  KeyManager,
			cfg:  &BasicConfig{Required: false},
		},
		{
			name: "email with domains",
			key:  KeyEmailUsername,
			cfg:  &EmailConfig{Required: true, Domains: []string{"corp.example.com", "example.com"}},
		},
		{
			name: "password policy",
			key:  KeyPassword,
			cfg: &PasswordConfig{
				Required:           true,
				ShowGenerateButton: true,
				Components: []PasswordComponent{
					{Type: ComponentWords, Count: 1},
					{Type: ComponentNumbers, Count: 2},
					{Type: ComponentSymbols, Count: 1},
				},
				TargetLength: 10,
			},
		},
		{
			name: "select with linkage",
			key:  KeyDepartment,
			cfg: &SelectConfig{
				Required:   true,
				UseList:    true,
				Options:    []string{"Engineering", "Sales"},
				LinkApps:   true,
				LinkGroups: false,
			},
		},
		{
			name: "visibility hidden",
			key:  KeyApps,
			cfg:  &VisibilityConfig{Required: false, HideField: true},
		},
		{
			name: "visibility with options",
			key:  KeyGroups,
			cfg:  &VisibilityConfig{Required: false, HideField: false, Options: []string{"staff", "all-hands"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.key, tt.cfg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(tt.key, data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.cfg) {
				t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, tt.cfg)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		key  FieldKey
		data string
	}{
		{"empty value", KeyFirstName, ""},
		{"not json", KeyPassword, "{not json"},
		{"unknown component type", KeyPassword, `{"required":true,"components":[{"type":"emoji","count":2}]}`},
		{"non-positive component count", KeyPassword, `{"required":true,"components":[{"type":"words","count":0}]}`},
		{"wrong shape", KeyEmailUsername, `{"domains":"not-a-list"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.key, []byte(tt.data)); err == nil {
				t.Errorf("expected decode error for %q", tt.data)
			}
		})
	}
}

func TestEncodeRejectsVariantMismatch(t *testing.T) {
	_, err := Encode(KeyPassword, &BasicConfig{Required: true})
	if err == nil {
		t.Fatal("expected variant mismatch error")
	}

	_, err = Encode(FieldKey("bogus"), &BasicConfig{})
	if err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestDefaultsCoverEveryKey(t *testing.T) {
	defaults := Defaults()
	if len(defaults) != len(AllKeys()) {
		t.Fatalf("expected %d defaults, got %d", len(AllKeys()), len(defaults))
	}
	for _, k := range AllKeys() {
		cfg, ok := defaults[k]
		if !ok || cfg == nil {
			t.Errorf("missing default for %q", k)
			continue
		}
		// Every default must survive a storage round trip.
		data, err := Encode(k, cfg)
		if err != nil {
			t.Errorf("default for %q does not encode: %v", k, err)
			continue
		}
		if _, err := Decode(k, data); err != nil {
			t.Errorf("default for %q does not decode: %v", k, err)
		}
	}
}

func TestFieldKeyValid(t *testing.T) {
	for _, k := range AllKeys() {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if FieldKey("middleName").Valid() {
		t.Error("expected unknown key to be invalid")
	}

	if _, err := Decode(FieldKey("middleName"), []byte(`{}`)); err == nil {
		t.Error("expected decode of unknown key to fail")
	}
}
