package domain

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var nan = math.NaN()

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sampleColumn matches columns of one replicate, "density_a" or
// "density_sample_a", capturing the base name.
var sampleColumn = regexp.MustCompile(`^(.+?)_(?:sample_)?[a-z0-9]$`)

func sampleBase(column string) string {
	if m := sampleColumn.FindStringSubmatch(column); m != nil {
		return m[1]
	}
	return column
}

// matchesCode reports whether column holds values of code, either directly
// or as one of its replicates.
func matchesCode(column, code string) bool {
	if column == code {
		return true
	}
	rest, ok := strings.CutPrefix(column, code+"_")
	if !ok {
		return false
	}
	rest = strings.TrimPrefix(rest, "sample_")
	return len(rest) == 1
}

// DetermineDataNames classifies columns into measured variables by
// containment. A code found in more than one column is multi-sample,
// except depth which also matches bottom_depth. When depthIsMetadata is set
// (layer profiles) depth is a coordinate and not a variable. A file with no
// variable is an error.
func DetermineDataNames(columns []string, codes []string, depthIsMetadata bool) ([]string, []string, error) {
	var names, multi []string
	for _, code := range codes {
		n := 0
		for _, c := range columns {
			n += strings.Count(c, code)
		}
		if n == 0 {
			continue
		}
		if code == "depth" && depthIsMetadata {
			continue
		}
		names = append(names, code)
		if n > 1 && code != "depth" {
			multi = append(multi, code)
		}
	}
	if len(names) == 0 {
		return nil, nil, NewError(KindVocabulary, ErrNoDataNames)
	}
	return names, multi, nil
}

// RenameSampleColumns rewrites replicate columns of multi-sample variables
// to the "<code>_sample_<x>" form.
func RenameSampleColumns(columns []string, multi []string) []string {
	out := slices.Clone(columns)
	for i, c := range out {
		for _, code := range multi {
			if c == code || !matchesCode(c, code) {
				continue
			}
			suffix := c[len(c)-1:]
			out[i] = code + "_sample_" + suffix
		}
	}
	return out
}

// AvgFromMultiSample averages the replicate values of base in row, skipping
// missing entries. No usable replicate gives false.
func AvgFromMultiSample[V any](row map[string]V, base string) (float64, bool) {
	var sum float64
	var n int
	for k, v := range row {
		if k == base || !matchesCode(k, base) {
			continue
		}
		f, ok := toFloat(ParseNone(any(v)))
		if !ok {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
