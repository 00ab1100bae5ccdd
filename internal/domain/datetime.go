package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	KeyDate     = "date"
	KeyTime     = "time"
	KeyDateTime = "datetime"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour, Minute, Second, Nanosecond int
}

// TimeOfDayOf returns the wall-clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

func (t TimeOfDay) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond != 0 {
		s += fmt.Sprintf(".%06d", t.Nanosecond/1000)
	}
	return s
}

// Layouts tried for combined date/time strings, in order.
var dateTimeLayouts = []string{
	"2006-01-02-15:04",
	"2006-01-02-15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06 15:04",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
}

// Layouts tried for date-only strings, in order.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"2006/01/02",
	"02-Jan-06",
	"2-Jan-06",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
}

// Layouts tried for time-only strings with separators.
var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"15:04:05.999999999",
	"3:04 PM",
	"3:04:05 PM",
}

// utcKeys hold day-of-year timestamps, always recorded in UTC.
var utcKeys = []string{"utcyear", "utcdoy", "utctod"}

func loadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, Errorf(KindConfig, "a valid timezone was not provided")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, Errorf(KindConfig, "unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

func stringValue(v any) (string, bool) {
	v = ParseNone(v)
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return fmt.Sprint(v), true
}

// combinedDateTimeKey returns the key holding a joined date and time, if any.
func combinedDateTimeKey(info map[string]any) (string, bool) {
	if _, ok := info[KeyDateTime]; ok {
		return KeyDateTime, true
	}
	for k := range info {
		if strings.Contains(k, "date") && strings.Contains(k, "time") {
			return k, true
		}
	}
	return "", false
}

// AddDateTimeKeys combines whatever date/time encoding the info map carries
// into "date", "time" and "datetime", converting from inTZ to outTZ.
// Supported encodings: one combined key ("date/time", "date&time",
// "date/local_standard_time", ...), separate "date" and "time" keys, or
// "utcyear"/"utcdoy"/"utctod". A missing or absent time leaves "time" and
// "datetime" nil and the date unconverted. The input map is not modified.
func AddDateTimeKeys(info map[string]any, inTZ, outTZ string) (map[string]any, error) {
	out := make(map[string]any, len(info)+3)
	for k, v := range info {
		out[k] = v
	}

	outLoc, err := loadLocation(outTZ)
	if err != nil {
		return nil, err
	}

	if _, ok := out["utcdoy"]; ok {
		instant, err := parseDayOfYear(out)
		if err != nil {
			return nil, err
		}
		for _, k := range utcKeys {
			delete(out, k)
		}
		setInstant(out, instant.In(outLoc))
		return out, nil
	}

	inLoc, err := loadLocation(inTZ)
	if err != nil {
		return nil, err
	}

	if key, ok := combinedDateTimeKey(out); ok {
		raw, present := stringValue(out[key])
		delete(out, key)
		if present {
			instant, err := parseWithLayouts(raw, dateTimeLayouts, inLoc)
			if err != nil {
				return nil, Errorf(KindFormat, "parse %s %q: %w", key, raw, err)
			}
			setInstant(out, instant.In(outLoc))
			return out, nil
		}
	}

	rawDate, hasDate := stringValue(out[KeyDate])
	if !hasDate {
		return out, nil
	}
	date, err := parseDate(rawDate, inLoc)
	if err != nil {
		return nil, Errorf(KindFormat, "parse date %q: %w", rawDate, err)
	}

	rawTime, hasTime := stringValue(out[KeyTime])
	if !hasTime {
		out[KeyDate] = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		out[KeyTime] = nil
		out[KeyDateTime] = nil
		return out, nil
	}

	tod, err := parseTimeOfDay(rawTime)
	if err != nil {
		return nil, Errorf(KindFormat, "parse time %q: %w", rawTime, err)
	}
	instant := time.Date(date.Year(), date.Month(), date.Day(),
		tod.Hour, tod.Minute, tod.Second, tod.Nanosecond, inLoc)
	setInstant(out, instant.In(outLoc))
	return out, nil
}

func setInstant(info map[string]any, t time.Time) {
	info[KeyDateTime] = t
	info[KeyDate] = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	info[KeyTime] = TimeOfDayOf(t)
}

func parseWithLayouts(s string, layouts []string, loc *time.Location) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no known layout matches")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if isDigits(s) {
		switch len(s) {
		case 8:
			return time.ParseInLocation("20060102", s, loc)
		case 6:
			return time.ParseInLocation("010206", s, loc)
		}
	}
	return parseWithLayouts(s, dateLayouts, loc)
}

// parseTimeOfDay accepts "15:04" style times and compact HHMM, HHMMSS and
// HHMMSS.sss numbers.
func parseTimeOfDay(s string) (TimeOfDay, error) {
	if strings.Contains(s, ":") {
		t, err := parseWithLayouts(strings.ToUpper(s), timeLayouts, time.UTC)
		if err != nil {
			return TimeOfDay{}, err
		}
		return TimeOfDayOf(t), nil
	}

	whole, frac, _ := strings.Cut(s, ".")
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return TimeOfDay{}, fmt.Errorf("not a time")
	}
	if len(whole) <= 4 && frac == "" {
		whole = strings.Repeat("0", 4-len(whole)) + whole + "00"
	}
	whole = strings.Repeat("0", max(0, 6-len(whole))) + whole
	n, err := strconv.Atoi(whole)
	if err != nil {
		return TimeOfDay{}, err
	}
	tod := TimeOfDay{Hour: n / 10000, Minute: n / 100 % 100, Second: n % 100}
	if frac != "" {
		f, _ := strconv.ParseFloat("0."+frac, 64)
		tod.Nanosecond = int(math.Round(f * 1e9))
	}
	if tod.Hour > 23 || tod.Minute > 59 || tod.Second > 60 {
		return TimeOfDay{}, fmt.Errorf("time out of range")
	}
	return tod, nil
}

func parseDayOfYear(info map[string]any) (time.Time, error) {
	year, okY := toFloat(info["utcyear"])
	doy, okD := toFloat(info["utcdoy"])
	if !okY || !okD {
		return time.Time{}, Errorf(KindFormat, "utcyear and utcdoy must both be numeric")
	}
	t := time.Date(int(year), time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(doy)-1)

	raw, ok := stringValue(info["utctod"])
	if !ok {
		return t, nil
	}
	tod, err := parseTimeOfDay(raw)
	if err != nil {
		return time.Time{}, Errorf(KindFormat, "parse utctod %q: %w", raw, err)
	}
	return t.Add(time.Duration(tod.Hour)*time.Hour +
		time.Duration(tod.Minute)*time.Minute +
		time.Duration(tod.Second)*time.Second +
		time.Duration(tod.Nanosecond)), nil
}
