package fieldcfg

import (
	"encoding/json"
	"fmt"
)

// FieldKey identifies one logical field on the new-user provisioning form.
// The set is closed: every key has exactly one config variant, and code that
// branches on field behavior must handle all of them.
type FieldKey string

const (
	KeyFirstName           FieldKey = "firstName"
	KeyLastName            FieldKey = "lastName"
	KeyEmailUsername       FieldKey = "emailUsername"
	KeyPassword            FieldKey = "password"
	KeyTitle               FieldKey = "title"
	KeyManager             FieldKey = "manager"
	KeyDepartment          FieldKey = "department"
	KeyEmployeeType        FieldKey = "employeeType"
	KeyApps                FieldKey = "apps"
	KeyGroups              FieldKey = "groups"
	KeySendActivationEmail FieldKey = "sendActivationEmail"
)

// AllKeys returns every field key in canonical form order.
func AllKeys() []FieldKey {
	return []FieldKey{
		KeyFirstName,
		KeyLastName,
		KeyEmailUsername,
		KeyPassword,
		KeyTitle,
		KeyManager,
		KeyDepartment,
		KeyEmployeeType,
		KeyApps,
		KeyGroups,
		KeySendActivationEmail,
	}
}

// Valid reports whether k is a known field key.
func (k FieldKey) Valid() bool {
	switch k {
	case KeyFirstName, KeyLastName, KeyEmailUsername, KeyPassword,
		KeyTitle, KeyManager, KeyDepartment, KeyEmployeeType,
		KeyApps, KeyGroups, KeySendActivationEmail:
		return true
	}
	return false
}

// Config is the per-field configuration. The concrete variant is fixed by
// the field key and never swapped: Basic for plain text fields, Email for
// the email username, Password for the password policy, Select for the
// department and employee-type pickers, Visibility for apps/groups/
// activation-email.
type Config interface {
	// IsRequired reports whether the field must be filled at submit time.
	IsRequired() bool

	config()
}

// BasicConfig configures a plain text field (firstName, lastName, title,
// manager).
type BasicConfig struct {
	Required bool `json:"required"`
}

// EmailConfig configures the email username field. The first domain is the
// default offered to the operator.
type EmailConfig struct {
	Required bool     `json:"required"`
	Domains  []string `json:"domains"`
}

// ComponentType is the kind of segment a password policy produces.
type ComponentType string

const (
	ComponentWords   ComponentType = "words"
	ComponentNumbers ComponentType = "numbers"
	ComponentSymbols ComponentType = "symbols"
)

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	return t == ComponentWords || t == ComponentNumbers || t == ComponentSymbols
}

// PasswordComponent specifies one segment of a generated password: count
// instances of the given type, emitted in declaration order.
type PasswordComponent struct {
	Type  ComponentType `json:"type"`
	Count int           `json:"count"`
}

// PasswordConfig configures the password field and its generation policy.
// TargetLength is advisory: the generator does not pad or truncate to it.
type PasswordConfig struct {
	Required           bool                `json:"required"`
	ShowGenerateButton bool                `json:"showGenerateButton"`
	Components         []PasswordComponent `json:"components"`
	TargetLength       int                 `json:"targetLength"`
}

// SelectConfig configures an attribute picker (department, employeeType).
// LinkApps/LinkGroups control whether a picked value pulls in the apps and
// groups mapped to it.
type SelectConfig struct {
	Required   bool     `json:"required"`
	UseList    bool     `json:"useList"`
	Options    []string `json:"options"`
	LinkApps   bool     `json:"linkApps"`
	LinkGroups bool     `json:"linkGroups"`
}

// VisibilityConfig configures a field that can be hidden from the form
// entirely (apps, groups, sendActivationEmail).
type VisibilityConfig struct {
	Required  bool     `json:"required"`
	HideField bool     `json:"hideField"`
	Options   []string `json:"options,omitempty"`
}

func (c *BasicConfig) IsRequired() bool      { return c.Required }
func (c *EmailConfig) IsRequired() bool      { return c.Required }
func (c *PasswordConfig) IsRequired() bool   { return c.Required }
func (c *SelectConfig) IsRequired() bool     { return c.Required }
func (c *VisibilityConfig) IsRequired() bool { return c.Required }

func (*BasicConfig) config()      {}
func (*EmailConfig) config()      {}
func (*PasswordConfig) config()   {}
func (*SelectConfig) config()     {}
func (*VisibilityConfig) config() {}

// Decode parses a stored JSON setting value into the config variant that
// belongs to the given key. The variant is chosen by the key, not by the
// payload, so a stored value can never change a field's shape.
func Decode(key FieldKey, data []byte) (Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decoding config for %q: empty value", key)
	}

	switch key {
	case KeyFirstName, KeyLastName, KeyTitle, KeyManager:
		c := &BasicConfig{}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("decoding config for %q: %w", key, err)
		}
		return c, nil

	case KeyEmailUsername:
		c := &EmailConfig{}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("decoding config for %q: %w", key, err)
		}
		return c, nil

	case KeyPassword:
		c := &PasswordConfig{}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("decoding config for %q: %w", key, err)
		}
		for _, comp := range c.Components {
			if !comp.Type.Valid() {
				return nil, fmt.Errorf("decoding config for %q: unknown component type %q", key, comp.Type)
			}
			if comp.Count <= 0 {
				return nil, fmt.Errorf("decoding config for %q: component count must be positive, got %d", key, comp.Count)
			}
		}
		return c, nil

	case KeyDepartment, KeyEmployeeType:
		c := &SelectConfig{}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("decoding config for %q: %w", key, err)
		}
		return c, nil

	case KeyApps, KeyGroups, KeySendActivationEmail:
		c := &VisibilityConfig{}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("decoding config for %q: %w", key, err)
		}
		return c, nil
	}

	return nil, fmt.Errorf("unknown field key %q", key)
}

// Encode serializes a config for storage. It rejects a config whose variant
// does not match the key's fixed shape.
func Encode(key FieldKey, cfg Config) ([]byte, error) {
	if err := checkVariant(key, cfg); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config for %q: %w", key, err)
	}
	return data, nil
}

// checkVariant verifies that cfg is the variant assigned to key.
func checkVariant(key FieldKey, cfg Config) error {
	var ok bool
	switch key {
	case KeyFirstName, KeyLastName, KeyTitle, KeyManager:
		_, ok = cfg.(*BasicConfig)
	case KeyEmailUsername:
		_, ok = cfg.(*EmailConfig)
	case KeyPassword:
		_, ok = cfg.(*PasswordConfig)
	case KeyDepartment, KeyEmployeeType:
		_, ok = cfg.(*SelectConfig)
	case KeyApps, KeyGroups, KeySendActivationEmail:
		_, ok = cfg.(*VisibilityConfig)
	default:
		return fmt.Errorf("unknown field key %q", key)
	}
	if !ok {
		return fmt.Errorf("config variant %T is not valid for field %q", cfg, key)
	}
	return nil
}
