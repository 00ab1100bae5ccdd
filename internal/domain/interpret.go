package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// compassDegrees is the 16-point compass rose.
var compassDegrees = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
	"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
}

// compassWords spells out the directions field observers write in full.
var compassWords = strings.NewReplacer(
	"NORTH", "N",
	"SOUTH", "S",
	"EAST", "E",
	"WEST", "W",
)

// ConvertCardinalToDegree converts a compass token ("N", "S/SW", "West") to degrees.
func ConvertCardinalToDegree(token string) (float64, error) {
	t := strings.ToUpper(strings.TrimSpace(token))
	t = compassWords.Replace(t)
	t = strings.NewReplacer("/", "", "-", "", " ", "").Replace(t)
	if t == "" {
		return 0, Errorf(KindFormat, "empty cardinal direction")
	}
	deg, ok := compassDegrees[t]
	if !ok {
		return 0, Errorf(KindFormat, "invalid cardinal direction %q", token)
	}
	return deg, nil
}

// degreeSuffixes are the unit annotations stripped from degree values.
var degreeSuffixes = strings.NewReplacer("°", "", "degrees", "", "degree", "", "deg", "")

// ParseDegrees reads a numeric degree value such as "25", "25°" or "25 deg".
// Missing tokens yield nil. Anything else is a format error.
func ParseDegrees(v any) (any, error) {
	v = ParseNone(v)
	if v == nil {
		return nil, nil
	}
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, Errorf(KindFormat, "invalid degree value %v", v)
	}
	s = strings.TrimSpace(degreeSuffixes.Replace(strings.ToLower(s)))
	if ParseNone(s) == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, Errorf(KindFormat, "invalid degree value %q", v)
	}
	return f, nil
}

// degreeFields are header keys holding plain degree values.
var degreeFields = []string{"slope_angle", "air_temp"}

// ManageDegrees normalizes slope and air temperature values in place.
func ManageDegrees(info map[string]any) error {
	for _, k := range degreeFields {
		v, ok := info[k]
		if !ok {
			continue
		}
		parsed, err := ParseDegrees(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		info[k] = parsed
	}
	return nil
}

// ManageAspect normalizes info["aspect"] to degrees, converting compass tokens.
func ManageAspect(info map[string]any) error {
	v, ok := info["aspect"]
	if !ok {
		return nil
	}
	parsed, err := ParseDegrees(v)
	if err == nil {
		info["aspect"] = parsed
		return nil
	}
	s, _ := v.(string)
	deg, err := ConvertCardinalToDegree(s)
	if err != nil {
		return fmt.Errorf("aspect: %w", err)
	}
	info["aspect"] = deg
	return nil
}

// stateTimezones maps the two-letter state prefix of a site id to its zone.
var stateTimezones = map[string]string{
	"AK": "US/Alaska",
	"CA": "US/Pacific",
	"CO": "US/Mountain",
	"ID": "US/Mountain",
	"MT": "US/Mountain",
	"NM": "US/Mountain",
	"NV": "US/Pacific",
	"OR": "US/Pacific",
	"UT": "US/Mountain",
	"WA": "US/Pacific",
	"WY": "US/Mountain",
}

// TimezoneFromSiteID returns the timezone implied by a site id's state prefix.
func TimezoneFromSiteID(siteID string) (string, error) {
	if len(siteID) < 2 {
		return "", Errorf(KindFormat, "site id %q has no state prefix", siteID)
	}
	tz, ok := stateTimezones[strings.ToUpper(siteID[:2])]
	if !ok {
		return "", Errorf(KindFormat, "no timezone known for site id %q", siteID)
	}
	return tz, nil
}

// SiteIDFromFilename returns the first capture group of pattern in filename.
func SiteIDFromFilename(filename string, pattern *regexp.Regexp) (string, bool) {
	m := pattern.FindStringSubmatch(filename)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
