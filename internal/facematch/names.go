package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nameSeparators = strings.NewReplacer("-", " ", "_", " ", ".", " ")

// RemoveDiacritics folds accented letters to their base form, e.g. "Jiří" becomes "Jiri".
func RemoveDiacritics(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizePersonName returns the lookup key stored next to an identity name.
// "Jan Novák", "jan-novak" and "JAN_NOVAK" all normalize to "jan novak", so
// enrollment directory names find the identity they belong to.
func NormalizePersonName(name string) string {
	key := strings.ToLower(RemoveDiacritics(name))
	return strings.Join(strings.Fields(nameSeparators.Replace(key)), " ")
}
