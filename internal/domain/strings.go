package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// byteOrderMarks are BOM artifacts seen at the start of the first header
// line, both as the raw rune and as its latin-1 decoding.
var byteOrderMarks = []string{"\ufeff", "\u00ef\u00bb\u00bf"}

// CleanString removes BOM artifacts and surrounding whitespace and collapses
// runs of spaces.
func CleanString(s string) string {
	s = stripByteOrderMarks(s)
	s = strings.TrimSpace(s)
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// stripByteOrderMarks removes BOM artifacts until none remain, since removing
// one can join the fragments of another.
func stripByteOrderMarks(s string) string {
	for {
		out := s
		for _, bom := range byteOrderMarks {
			out = strings.ReplaceAll(out, bom, "")
		}
		if out == s {
			return out
		}
		s = out
	}
}

// StandardizeKey turns a raw header token into a canonical snake_case key,
// e.g. "Specific surface area (m^2/kg)" → "specific_surface_area".
// Applying it twice gives the same result as applying it once.
func StandardizeKey(key string) string {
	ks := CleanString(key)
	ks = StripEncapsulated(ks, "()")
	ks = StripEncapsulated(ks, "[]")
	ks = strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '[', ']', '"', '\'':
			return -1
		}
		return r
	}, ks)
	// Lowercasing and quote removal can both form a new artifact.
	ks = stripByteOrderMarks(strings.ToLower(ks))
	return strings.Join(strings.Fields(ks), "_")
}

func encapsulators(encapsulator string) (rune, rune, error) {
	r := []rune(encapsulator)
	switch len(r) {
	case 1:
		return r[0], r[0], nil
	case 2:
		return r[0], r[1], nil
	default:
		return 0, 0, fmt.Errorf("encapsulator %q must be one character or a pair", encapsulator)
	}
}

// GetEncapsulated returns every substring of text enclosed by the
// encapsulator, which is either a single symmetric character (`"`) or an
// open/close pair ("()", "[]"). An unterminated opener is an error.
func GetEncapsulated(text, encapsulator string) ([]string, error) {
	lcap, rcap, err := encapsulators(encapsulator)
	if err != nil {
		return nil, err
	}

	var found []string
	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		if rs[i] != lcap {
			continue
		}
		end := -1
		for j := i + 1; j < len(rs); j++ {
			if rs[j] == rcap {
				end = j
				break
			}
		}
		if end < 0 {
			return nil, fmt.Errorf("unbalanced %q in %q", encapsulator, text)
		}
		found = append(found, string(rs[i+1:end]))
		i = end
	}
	return found, nil
}

// StripEncapsulated removes every encapsulated segment, brackets included.
// Unterminated openers and invalid encapsulators leave text unchanged.
func StripEncapsulated(text, encapsulator string) string {
	lcap, rcap, err := encapsulators(encapsulator)
	if err != nil {
		return text
	}

	var b strings.Builder
	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		if rs[i] == lcap {
			end := -1
			for j := i + 1; j < len(rs); j++ {
				if rs[j] == rcap {
					end = j
					break
				}
			}
			if end >= 0 {
				i = end
				continue
			}
		}
		b.WriteRune(rs[i])
	}
	return b.String()
}

// RemapName substitutes name through the rename map; unknown names pass through.
func RemapName(name string, rename map[string]string) string {
	if v, ok := rename[name]; ok {
		return v
	}
	return name
}

// RemapNames applies RemapName to every entry, preserving order.
func RemapNames(names []string, rename map[string]string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = RemapName(n, rename)
	}
	return out
}

// RemapKeys renames the keys of m. When two keys collapse onto one name the
// key that was already canonical wins.
func RemapKeys[V any](m map[string]V, rename map[string]string) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		nk := RemapName(k, rename)
		if _, exists := out[nk]; exists && nk != k {
			continue
		}
		out[nk] = v
	}
	return out
}

// IsMissing reports whether s is one of the missing-value tokens.
func IsMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none", "null":
		return true
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return math.IsNaN(f) || f == -9999
	}
	return false
}

// ParseNone maps missing-value sentinels to nil and returns everything else unchanged.
func ParseNone(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if IsMissing(x) {
			return nil
		}
	case float64:
		if math.IsNaN(x) || x == -9999 {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || x == -9999 {
			return nil
		}
	case int:
		if x == -9999 {
			return nil
		}
	case int64:
		if x == -9999 {
			return nil
		}
	}
	return v
}

// KeywordIn reports whether keyword occurs in any of words, ignoring case.
func KeywordIn(keyword string, words ...string) bool {
	kw := strings.ToLower(keyword)
	for _, w := range words {
		if strings.Contains(strings.ToLower(w), kw) {
			return true
		}
	}
	return false
}

// GetAlphaRatio is the number of letters per digit in line, ignoring any
// segment enclosed by ignoreEncapsulator. Lines without digits divide by one.
func GetAlphaRatio(line, ignoreEncapsulator string) float64 {
	if ignoreEncapsulator != "" {
		line = StripEncapsulated(line, ignoreEncapsulator)
	}
	var alpha, numeric int
	for _, r := range line {
		switch {
		case unicode.IsLetter(r):
			alpha++
		case unicode.IsDigit(r):
			numeric++
		}
	}
	if numeric == 0 {
		numeric = 1
	}
	return float64(alpha) / float64(numeric)
}

// alphaRatioDrop is the factor by which a data row's alpha ratio falls
// below the header line preceding it.
const alphaRatioDrop = 0.25

// LineIsHeader decides whether line belongs to the header block. An active
// header indicator is decisive. Otherwise a line splitting into exactly
// expectedColumns fields is a header, and failing that the line's alpha
// ratio is compared with the previous line's. Quoted free text is ignored
// when computing the ratio.
func LineIsHeader(line, sep, indicator string, previousAlphaRatio *float64, expectedColumns int) bool {
	if indicator != "" {
		return strings.HasPrefix(strings.TrimSpace(line), indicator)
	}

	if sep != "" && expectedColumns > 0 && len(strings.Split(line, sep)) == expectedColumns {
		return true
	}

	ratio := GetAlphaRatio(line, `""`)
	if ratio < 1 {
		return false
	}
	if previousAlphaRatio == nil {
		return true
	}
	return ratio >= *previousAlphaRatio*alphaRatioDrop
}
