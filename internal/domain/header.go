package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// HeaderIndicator marks metadata lines.
const HeaderIndicator = "#"

// FileKind selects how a header block is interpreted.
type FileKind int

const (
	ProfileFile FileKind = iota
	PointFile
	SiteDetailsFile
)

// HeaderRenames maps standardized header keys to canonical names.
var HeaderRenames = map[string]string{
	"location":            "site_name",
	"top":                 "depth",
	"height":              "depth",
	"bottom":              "bottom_depth",
	"site":                "site_id",
	"pitid":               "pit_id",
	"slope":               "slope_angle",
	"weather":             "weather_description",
	"sky":                 "sky_cover",
	"notes":               "site_notes",
	"sample_top_height":   "depth",
	"deq":                 "equivalent_diameter",
	"operator":            "observers",
	"surveyors":           "observers",
	"observer":            "observers",
	"total_snow_depth":    "total_depth",
	"smp_serial_number":   "instrument",
	"lat":                 "latitude",
	"long":                "longitude",
	"lon":                 "longitude",
	"twt":                 "two_way_travel",
	"twt_ns":              "two_way_travel",
	"utmzone":             "utm_zone",
	"measurement_tool":    "instrument",
	"avgdensity":          "density",
	"avg_density":         "density",
	"density_mean":        "density",
	"dielectric_constant": "permittivity",
	"flag":                "flags",
	"hs":                  "depth",
	"swe_mm":              "swe",
	"depth_m":             "depth",
	"date_dd_mmm_yy":      "date",
	"time_gmt":            "time",
	"elev_m":              "elevation",
}

// Info is an interpreted metadata mapping. Values are nil, string, float64,
// int, time.Time, TimeOfDay or Point.
type Info map[string]any

// String returns a non-empty string value.
func (in Info) String(key string) (string, bool) {
	s, ok := stringValue(in[key])
	return s, ok && s != ""
}

// Float returns a numeric value.
func (in Info) Float(key string) (float64, bool) {
	return toFloat(in[key])
}

// FloatPtr returns a numeric value or nil.
func (in Info) FloatPtr(key string) *float64 {
	if f, ok := in.Float(key); ok {
		return &f
	}
	return nil
}

// Int returns an integer value.
func (in Info) Int(key string) (int, bool) {
	switch x := in[key].(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	}
	if f, ok := toFloat(in[key]); ok && f == math.Trunc(f) {
		return int(f), true
	}
	return 0, false
}

// Time returns a time.Time value.
func (in Info) Time(key string) (time.Time, bool) {
	t, ok := in[key].(time.Time)
	return t, ok
}

// Header is the parsed leading block of a data file.
type Header struct {
	Info Info
	// Columns are the canonical column names in file order.
	Columns []string
	// Units maps a variable code to the unit annotated in the column header.
	Units map[string]string
	// Ignored are columns to drop from the body.
	Ignored          []string
	DataNames        []string
	MultiSampleNames []string
	// HeaderPos is the zero-based line of the column header, -1 for site details.
	HeaderPos int
	// Warnings collects non-fatal conflicts found while interpreting.
	Warnings []string
}

// FindHeaderPosition returns the index of the last header line. With the
// indicator convention the header is the leading run of marked lines and
// the last of them names the columns. Otherwise lines stay in the header
// while LineIsHeader accepts them by alpha ratio.
func FindHeaderPosition(lines []string, sep, indicator string) (int, error) {
	first := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return -1, Errorf(KindParse, "file is empty")
	}

	active := ""
	if indicator != "" && strings.HasPrefix(strings.TrimSpace(lines[first]), indicator) {
		active = indicator
	}

	pos := -1
	var prev *float64
	for i := first; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !LineIsHeader(line, sep, active, prev, 0) {
			break
		}
		pos = i
		r := GetAlphaRatio(line, `""`)
		prev = &r
	}
	if pos < 0 {
		return -1, Errorf(KindParse, "no column header found")
	}
	return pos, nil
}

func stripIndicator(line string) string {
	return strings.TrimPrefix(strings.TrimSpace(line), HeaderIndicator)
}

// ParseMetadataLines splits marked key/value lines into a raw mapping with
// standardized keys. Date and time values rejoin with ":" since the
// separator may have split them.
func ParseMetadataLines(lines []string, sep string) map[string]any {
	info := map[string]any{}
	for _, line := range lines {
		parts := strings.Split(stripIndicator(line), sep)
		key := StandardizeKey(parts[0])
		if key == "" {
			continue
		}
		rest := parts[1:]
		for len(rest) > 0 && strings.TrimSpace(rest[len(rest)-1]) == "" {
			rest = rest[:len(rest)-1]
		}

		var value string
		if strings.Contains(key, "time") || strings.Contains(key, "date") {
			value = strings.Join(rest, ":")
		} else {
			value = strings.Join(rest, ", ")
		}
		value = CleanString(strings.ReplaceAll(value, `"`, ""))

		if value == "" {
			info[key] = nil
			continue
		}
		info[key] = value
	}
	return info
}

// ParseColumns standardizes and resolves the column header line. It returns
// the canonical names and the units annotated in parentheses or brackets.
func ParseColumns(line string, vocab *Vocabulary, allowMapFailure bool) ([]string, map[string]string, error) {
	raw := strings.Split(stripIndicator(line), ",")
	for len(raw) > 0 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}

	columns := make([]string, 0, len(raw))
	units := map[string]string{}
	var unknown []string
	for _, r := range raw {
		key := StandardizeKey(r)
		if key == "" {
			return nil, nil, Errorf(KindParse, "empty column name in %q", line)
		}
		code, kind := vocab.Resolve(key)
		if kind == ColumnUnknown {
			if !allowMapFailure {
				unknown = append(unknown, key)
			}
			code = RemapName(key, HeaderRenames)
		}
		columns = append(columns, code)

		for _, enc := range []string{"()", "[]"} {
			found, err := GetEncapsulated(r, enc)
			if err == nil && len(found) > 0 && strings.TrimSpace(found[0]) != "" {
				base := sampleBase(code)
				if _, seen := units[base]; !seen {
					units[base] = strings.TrimSpace(found[0])
				}
				break
			}
		}
	}
	if len(unknown) > 0 {
		return nil, nil, Errorf(KindVocabulary, "unable to map columns to the vocabulary: %s", strings.Join(unknown, ", "))
	}
	return columns, units, nil
}

// ParseHeader parses the header block of lines. It locates the column
// header, reads the metadata into Info, resolves the columns and, for data
// files, classifies the measured variables.
func ParseHeader(lines []string, kind FileKind, opts Options, vocab *Vocabulary) (*Header, error) {
	opts = opts.WithDefaults()
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	h := &Header{HeaderPos: -1, Units: map[string]string{}}
	metaLines := lines

	if kind != SiteDetailsFile {
		pos, err := FindHeaderPosition(lines, opts.HeaderSep, HeaderIndicator)
		if err != nil {
			return nil, err
		}
		columns, units, err := ParseColumns(lines[pos], vocab, opts.AllowMapFailure)
		if err != nil {
			return nil, err
		}
		h.HeaderPos = pos
		h.Columns = columns
		h.Units = units
		for _, c := range columns {
			if _, k := vocab.Resolve(c); k == ColumnIgnored {
				h.Ignored = append(h.Ignored, c)
			}
		}
		metaLines = lines[:pos]
	}

	raw := ParseMetadataLines(metaLines, opts.HeaderSep)
	raw = RemapKeys(raw, HeaderRenames)

	info, warnings, err := Interpret(raw, h.Columns, kind, opts)
	if err != nil {
		return nil, err
	}
	h.Info = info
	h.Warnings = warnings

	if kind == SiteDetailsFile {
		return h, nil
	}

	kept := slices.DeleteFunc(slices.Clone(h.Columns), func(c string) bool {
		return slices.Contains(h.Ignored, c)
	})
	dataNames, multi, err := DetermineDataNames(kept, vocab.PrimaryCodes(), kind == ProfileFile)
	if err != nil {
		return nil, err
	}
	h.DataNames = dataNames
	h.MultiSampleNames = multi
	h.Columns = RenameSampleColumns(h.Columns, multi)
	return h, nil
}

// Interpret applies options and type coercion to raw metadata: missing
// tokens become nil, Extra overrides header values, degrees and aspect are
// normalized, dates are combined, coordinates are reconciled and a point
// geometry is added.
func Interpret(raw map[string]any, columns []string, kind FileKind, opts Options) (Info, []string, error) {
	opts = opts.WithDefaults()
	info := Info{}
	for k, v := range raw {
		info[k] = ParseNone(v)
	}

	var warnings []string
	for k, v := range opts.Extra {
		key := RemapName(StandardizeKey(k), HeaderRenames)
		if old, ok := info[key]; ok && old != nil && fmt.Sprint(old) != v {
			warnings = append(warnings, fmt.Sprintf("overwriting header %s=%v with option value %q", key, old, v))
		}
		info[key] = ParseNone(v)
	}

	if err := ManageDegrees(info); err != nil {
		return nil, nil, err
	}
	if err := ManageAspect(info); err != nil {
		return nil, nil, err
	}

	if !opts.RowBasedTimezone {
		dated, err := AddDateTimeKeys(info, opts.Timezone, opts.OutTimezone)
		if err != nil {
			return nil, nil, err
		}
		info = dated
	}

	headerZone, hadZone := ParseUTMZone(info[KeyUTMZone])
	headerEPSG, hadEPSG := info.Int(KeyEPSG)
	projected, err := ReprojectPoint(info, opts.Northern(), opts.UTMZone)
	if err != nil {
		return nil, nil, err
	}
	info = projected
	if z, ok := ParseUTMZone(info[KeyUTMZone]); ok && hadZone && z != headerZone {
		warnings = append(warnings, fmt.Sprintf("header utm zone %d replaced by zone %d derived from lat/lon", headerZone, z))
	}

	switch {
	case opts.EPSG != 0:
		info[KeyEPSG] = opts.EPSG
	case info[KeyEPSG] == nil && hadEPSG:
		info[KeyEPSG] = headerEPSG
	}

	hasGeo := func(keys ...string) bool {
		for _, k := range keys {
			if slices.Contains(columns, k) {
				return true
			}
			if _, ok := info.Float(k); ok {
				return true
			}
		}
		return false
	}
	if !hasGeo(KeyNorthing, KeyLatitude) {
		return nil, nil, NewError(KindValidation, ErrNoGeoInfo)
	}

	epsg, hasEPSG := info.Int(KeyEPSG)
	if kind != PointFile && !hasEPSG {
		return nil, nil, NewError(KindValidation, ErrNoEPSG)
	}
	if hasEPSG {
		if _, ok := info.Float(KeyEasting); ok {
			if _, err := AddGeom(info, epsg); err != nil {
				return nil, nil, err
			}
		}
	}
	return info, warnings, nil
}

// integrityIgnored are keys that legitimately differ between a profile
// header and its site details file.
var integrityIgnored = map[string]bool{
	"flags": true, KeyGeom: true,
}

// CheckIntegrity compares this header with a separately parsed site
// details header. The result maps each disagreeing key to a reason.
func (h *Header) CheckIntegrity(site Info) map[string]string {
	mismatch := map[string]string{}
	for k, v := range h.Info {
		if integrityIgnored[k] || v == nil {
			continue
		}
		sv, ok := site[k]
		if !ok {
			mismatch[k] = "Key not found in site details"
			continue
		}
		if !sameValue(v, sv) {
			mismatch[k] = "Profile header != Site details header"
		}
	}
	return mismatch
}

// VerifySite fails when any key present in both headers disagrees. Keys
// missing from the site details are tolerated.
func (h *Header) VerifySite(site Info) error {
	var bad []string
	for k, reason := range h.CheckIntegrity(site) {
		if reason == "Key not found in site details" {
			continue
		}
		bad = append(bad, fmt.Sprintf("%s (profile %v, site details %v)", k, h.Info[k], site[k]))
	}
	if len(bad) == 0 {
		return nil
	}
	slices.Sort(bad)
	return Errorf(KindMismatch, "profile header disagrees with site details: %s", strings.Join(bad, "; "))
}

func sameValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return math.Abs(fa-fb) < 1e-6
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
