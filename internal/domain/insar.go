package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnnotationEntry is one `key (units) = value ; comment` line of a UAVSAR
// annotation file.
type AnnotationEntry struct {
	// Value is an int, float64, time.Time or string.
	Value   any
	Units   string
	Comment string
}

// Text renders the value as written.
func (e AnnotationEntry) Text() string {
	switch v := e.Value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(e.Value)
}

// Annotation maps lowercase keys to entries.
type Annotation map[string]AnnotationEntry

var annotationTimeLayouts = []string{
	"2-Jan-2006 15:04:05 MST",
	"2-Jan-2006 15:04:05.999999 MST",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2-Jan-2006 15:04:05",
}

// ParseAnnotation reads annotation lines. Numeric values become int or
// float64. The acquisition start and stop times of both passes are
// required and converted to UTC.
func ParseAnnotation(lines []string) (Annotation, error) {
	ann := Annotation{}
	for _, line := range lines {
		body, comment, _ := strings.Cut(strings.TrimSpace(line), ";")
		comment = strings.ToLower(strings.TrimSpace(comment))
		name, value, ok := strings.Cut(body, "=")
		if body == "" || !ok {
			continue
		}

		key, _, _ := strings.Cut(name, "(")
		key = strings.ToLower(strings.TrimSpace(key))
		var units string
		if found, err := GetEncapsulated(name, "()"); err == nil && len(found) > 0 {
			units = found[0]
		}
		ann[key] = AnnotationEntry{Value: annotationValue(strings.TrimSpace(value)), Units: units, Comment: comment}
	}

	for _, pass := range []string{"1", "2"} {
		for _, timing := range []string{"start", "stop"} {
			key := fmt.Sprintf("%s time of acquisition for pass %s", timing, pass)
			e, ok := ann[key]
			if !ok {
				return nil, Errorf(KindParse, "annotation is missing %q", key)
			}
			t, err := parseWithLayouts(e.Text(), annotationTimeLayouts, time.UTC)
			if err != nil {
				return nil, Errorf(KindFormat, "annotation %s %q: %w", key, e.Text(), err)
			}
			e.Value = t.UTC()
			ann[key] = e
		}
	}
	return ann, nil
}

func annotationValue(s string) any {
	digits := strings.ReplaceAll(strings.Trim(s, "-"), ".", "")
	if digits == "" || !isDigits(digits) {
		return s
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return s
}

// Time returns a parsed acquisition time.
func (a Annotation) Time(key string) (time.Time, error) {
	e, ok := a[key]
	if !ok {
		return time.Time{}, Errorf(KindParse, "annotation is missing %q", key)
	}
	t, ok := e.Value.(time.Time)
	if !ok {
		return time.Time{}, Errorf(KindFormat, "annotation %q is not a time", key)
	}
	return t, nil
}

// FlightComment describes the overpass windows of a SAR product. Products
// of a single pass name only that pass.
func FlightComment(description string, ann Annotation) (string, error) {
	window := func(pass int) (string, error) {
		start, err := ann.Time(fmt.Sprintf("start time of acquisition for pass %d", pass))
		if err != nil {
			return "", err
		}
		stop, err := ann.Time(fmt.Sprintf("stop time of acquisition for pass %d", pass))
		if err != nil {
			return "", err
		}
		const layout = "2006-01-02 15:04:05"
		return fmt.Sprintf("%s - %s (UTC)", start.Format(layout), stop.Format(layout)), nil
	}

	for _, pass := range []int{1, 2} {
		if strings.HasSuffix(description, fmt.Sprintf("pass %d", pass)) {
			w, err := window(pass)
			if err != nil {
				return "", err
			}
			return "Overpass Duration: " + w, nil
		}
	}

	first, err := window(1)
	if err != nil {
		return "", err
	}
	second, err := window(2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("1st Overpass Duration: %s, 2nd Overpass Duration %s", first, second), nil
}
