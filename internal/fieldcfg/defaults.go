package fieldcfg

// Default returns the hard-coded configuration used for a field when no
// stored value exists for the tenant, or when the stored value fails to
// parse. A malformed row degrades that one field to its default; it never
// blocks the rest of the configuration from loading.
func Default(key FieldKey) Config {
	switch key {
	case KeyFirstName, KeyLastName:
		return &BasicConfig{Required: true}
	case KeyTitle, KeyManager:
		return &BasicConfig{Required: false}
	case KeyEmailUsername:
		return &EmailConfig{Required: true, Domains: []string{}}
	case KeyPassword:
		return &PasswordConfig{
			Required:           true,
			ShowGenerateButton: true,
			Components: []PasswordComponent{
				{Type: ComponentWords, Count: 2},
				{Type: ComponentNumbers, Count: 3},
			},
			TargetLength: 12,
		}
	case KeyDepartment, KeyEmployeeType:
		return &SelectConfig{
			Required:   false,
			UseList:    false,
			Options:    []string{},
			LinkApps:   false,
			LinkGroups: false,
		}
	case KeyApps, KeyGroups:
		return &VisibilityConfig{Required: false, HideField: false}
	case KeySendActivationEmail:
		return &VisibilityConfig{Required: false, HideField: false}
	}
	return nil
}

// Defaults returns the full default snapshot, one config per field key.
func Defaults() map[FieldKey]Config {
	out := make(map[FieldKey]Config, len(AllKeys()))
	for _, k := range AllKeys() {
		out[k] = Default(k)
	}
	return out
}
