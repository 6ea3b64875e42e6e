// Package password generates candidate passwords from a tenant's password
// policy: an ordered list of component specs, each producing a run of
// dictionary words, digits, or symbols.
package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/jmcnally/provisor/internal/fieldcfg"
)

// words is the fixed dictionary for word components. Entries are lowercase;
// the generator capitalizes the first letter of each picked word.
var words = []string{
	"anchor", "breeze", "cedar", "delta", "ember", "falcon", "garnet",
	"harbor", "indigo", "juniper", "kestrel", "lantern", "meadow", "nectar",
	"onyx", "prairie", "quartz", "raven", "summit", "timber", "umber",
	"violet", "willow", "zephyr",
}

// digits and symbols are the fixed alphabets for the other component types.
const (
	digits  = "0123456789"
	symbols = "!@#$%&*?"
)

// Generate produces a candidate password satisfying the policy: for each
// component entry, count tokens of the component's type, concatenated in
// declaration order. Word tokens are capitalized dictionary picks.
//
// Every call draws fresh randomness; two calls yield independent passwords.
// The policy's TargetLength is advisory and is not enforced here: the result
// length is the sum of the generated segments.
func Generate(policy *fieldcfg.PasswordConfig) (string, error) {
	if policy == nil {
		return "", fmt.Errorf("generating password: nil policy")
	}

	var b strings.Builder
	for _, comp := range policy.Components {
		if comp.Count <= 0 {
			return "", fmt.Errorf("generating password: component count must be positive, got %d", comp.Count)
		}
		for i := 0; i < comp.Count; i++ {
			switch comp.Type {
			case fieldcfg.ComponentWords:
				w, err := pick(words)
				if err != nil {
					return "", err
				}
				b.WriteString(capitalize(w))
			case fieldcfg.ComponentNumbers:
				c, err := pickByte(digits)
				if err != nil {
					return "", err
				}
				b.WriteByte(c)
			case fieldcfg.ComponentSymbols:
				c, err := pickByte(symbols)
				if err != nil {
					return "", err
				}
				b.WriteByte(c)
			default:
				return "", fmt.Errorf("generating password: unknown component type %q", comp.Type)
			}
		}
	}
	return b.String(), nil
}

func pick(list []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	if err != nil {
		return "", fmt.Errorf("drawing randomness: %w", err)
	}
	return list[n.Int64()], nil
}

func pickByte(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("drawing randomness: %w", err)
	}
	return alphabet[n.Int64()], nil
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
