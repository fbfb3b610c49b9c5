package replacer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	corev1 "k8s.io/api/core/v1"

	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/model"
)

// Replacements maps a secret key to its replacement text. The placeholder
// token for a key is the literal substring "$" + key + "$".
type Replacements map[string]string

// InvalidValueError reports a secret data entry that cannot serve as
// replacement text.
type InvalidValueError struct {
	Key string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("secret key %q: value is not valid UTF-8 text", e.Key)
}

// FromSecret builds the replacement set from a secret snapshot. Data entries
// are decoded as UTF-8 text; stringData entries overwrite data entries
// sharing a key. A non-decodable data value fails the whole build, so a
// partial replacement set is never applied.
func FromSecret(secret *corev1.Secret) (Replacements, error) {
	replacements := make(Replacements, len(secret.Data)+len(secret.StringData))
	for key, value := range secret.Data {
		if !utf8.Valid(value) {
			return nil, &InvalidValueError{Key: key}
		}
		replacements[key] = string(value)
	}
	for key, value := range secret.StringData {
		replacements[key] = value
	}
	return replacements, nil
}

// sortedKeys returns the replacement keys in ascending order, so that the
// outcome is deterministic when several placeholders match inside one value.
func (r Replacements) sortedKeys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Apply computes the staged rewrites for the given annotations.
//
// For each non-reserved annotation key the substitution base is the journaled
// original if one exists, otherwise the live value. Substitution is a single
// pass over the base; replacement text is copied through verbatim and never
// re-scanned, so a secret value cannot inject placeholder syntax. A rewrite
// is staged only when the result differs from the live value.
func (r Replacements) Apply(annotations model.Annotations, journal model.Journal, reserved map[string]struct{}) map[string]model.Rewrite {
	keys := r.sortedKeys()
	rewrites := map[string]model.Rewrite{}

	for name, value := range annotations {
		if _, ok := reserved[name]; ok {
			continue
		}

		base := value
		if original, ok := journal[name]; ok {
			base = original
		}

		candidate := r.substitute(base, keys)
		if candidate != value {
			rewrites[name] = model.Rewrite{Value: candidate, Original: base}
		}
	}

	return rewrites
}

// substitute replaces placeholder tokens in one left-to-right pass over base.
// At each position candidate tokens are tried in ascending key order, so the
// outcome is deterministic when several placeholders could match.
func (r Replacements) substitute(base string, keys []string) string {
	var out strings.Builder
	for i := 0; i < len(base); {
		if base[i] == '$' {
			if key, ok := r.tokenAt(base[i:], keys); ok {
				out.WriteString(r[key])
				i += len(key) + 2
				continue
			}
		}
		out.WriteByte(base[i])
		i++
	}
	return out.String()
}

// tokenAt returns the first key, in ascending order, whose "$key$" token
// prefixes s.
func (r Replacements) tokenAt(s string, keys []string) (string, bool) {
	for _, key := range keys {
		if strings.HasPrefix(s, "$"+key+"$") {
			return key, true
		}
	}
	return "", false
}
