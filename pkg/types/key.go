package types

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// TranslationKey addresses one rendered string: a field of a content row
// (or of a meaning object) in one target locale.
type TranslationKey struct {
	Table     string
	RowID     string
	MeaningID string
	Field     string
	Locale    string
}

// String renders the composite cache key. Keys built from a meaning id share
// translations across every row that references the meaning.
func (k TranslationKey) String() string {
	locale := NormalizeLocale(k.Locale)
	if k.MeaningID != "" {
		return strings.Join([]string{meaningPrefix, keyPart(k.MeaningID), keyPart(k.Field), locale}, ":")
	}
	return strings.Join([]string{tablePart(k.Table), keyPart(k.RowID), keyPart(k.Field), locale}, ":")
}

const meaningPrefix = "meaning"

// tablePart is keyPart for the table component. A table literally named
// "meaning" has its first byte percent-encoded so its row keys stay distinct
// from meaning keys.
func tablePart(table string) string {
	p := keyPart(table)
	if p == meaningPrefix {
		return "%6D" + p[1:]
	}
	return p
}

// keyPart NFC-normalizes a key component and escapes the separator.
func keyPart(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ":", "%3A")
}

// NormalizeLocale returns the canonical BCP 47 form of locale. Unparseable
// input is lower-cased and returned as is.
func NormalizeLocale(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(locale))
	}
	return tag.String()
}

// SameLanguage reports whether two locales share a base language, so that
// "en" and "en-GB" never trigger a translation of each other.
func SameLanguage(a, b string) bool {
	ta, errA := language.Parse(strings.TrimSpace(a))
	tb, errB := language.Parse(strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}
