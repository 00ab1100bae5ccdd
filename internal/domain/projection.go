package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"
)

const (
	KeyLatitude  = "latitude"
	KeyLongitude = "longitude"
	KeyEasting   = "easting"
	KeyNorthing  = "northing"
	KeyUTMZone   = "utm_zone"
	KeyEPSG      = "epsg"
	KeyGeom      = "geom"
)

// nad83EPSGBase is the EPSG code offset for NAD83 / UTM zone N.
const nad83EPSGBase = 26900

// EPSGForZone returns the NAD83 EPSG code of a UTM zone.
func EPSGForZone(zone int) int {
	return nad83EPSGBase + zone
}

// zoneDigits matches the leading zone number of tokens like "12N" or "zone 11".
var zoneDigits = regexp.MustCompile(`\d+`)

// ParseUTMZone extracts a zone number from a string ("12N"), integer or float.
func ParseUTMZone(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, x > 0 && x <= 60
	case int64:
		return int(x), x > 0 && x <= 60
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return int(x), x >= 1 && x <= 60
	case string:
		m := zoneDigits.FindString(x)
		if m == "" {
			return 0, false
		}
		z, err := strconv.Atoi(m)
		if err != nil || z < 1 || z > 60 {
			return 0, false
		}
		return z, true
	}
	return 0, false
}

// toFloat coerces header and cell values to float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ReprojectPoint fills in the missing coordinate representation of info.
// Present coordinate fields are coerced to float64 and unparseable ones are
// dropped. Latitude/longitude take priority and produce easting, northing
// and zone (forcedZone > 0 pins the zone). Otherwise easting, northing and
// utm_zone produce latitude/longitude. utm_zone and epsg are always set,
// to nil when no zone could be determined. The input map is not modified.
func ReprojectPoint(info map[string]any, northern bool, forcedZone int) (map[string]any, error) {
	out := make(map[string]any, len(info)+4)
	for k, v := range info {
		out[k] = v
	}

	for _, k := range []string{KeyLatitude, KeyLongitude, KeyEasting, KeyNorthing} {
		v, ok := out[k]
		if !ok {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			delete(out, k)
			continue
		}
		out[k] = f
	}

	zone, hasZone := ParseUTMZone(out[KeyUTMZone])
	lat, hasLat := out[KeyLatitude].(float64)
	lon, hasLon := out[KeyLongitude].(float64)
	easting, hasE := out[KeyEasting].(float64)
	northing, hasN := out[KeyNorthing].(float64)

	switch {
	case hasLat && hasLon:
		var e, n float64
		if forcedZone > 0 {
			e, n = latLonToZone(lat, lon, forcedZone)
			zone = forcedZone
		} else {
			var err error
			e, n, zone, _, err = UTM.FromLatLon(lat, lon, lat >= 0)
			if err != nil {
				return nil, Errorf(KindFormat, "project %v, %v to utm: %w", lat, lon, err)
			}
		}
		hasZone = true
		out[KeyEasting], out[KeyNorthing] = e, n

	case hasE && hasN && hasZone:
		la, lo, err := UTM.ToLatLon(easting, northing, zone, "", northern)
		if err != nil {
			return nil, Errorf(KindFormat, "project %v, %v zone %d to lat/lon: %w", easting, northing, zone, err)
		}
		out[KeyLatitude], out[KeyLongitude] = la, lo
	}

	if hasZone {
		out[KeyUTMZone] = zone
		out[KeyEPSG] = EPSGForZone(zone)
	} else {
		out[KeyUTMZone] = nil
		out[KeyEPSG] = nil
	}
	return out, nil
}

// Point is a projected point geometry tagged with its spatial reference.
type Point struct {
	X    float64
	Y    float64
	SRID int
}

// EWKT renders the point as extended well-known text.
func (p Point) EWKT() string {
	return fmt.Sprintf("SRID=%d;POINT(%s %s)", p.SRID,
		strconv.FormatFloat(p.X, 'f', -1, 64), strconv.FormatFloat(p.Y, 'f', -1, 64))
}

func (p Point) String() string { return p.EWKT() }

// AddGeom sets info["geom"] from easting/northing tagged with epsg.
func AddGeom(info map[string]any, epsg int) (map[string]any, error) {
	e, okE := toFloat(info[KeyEasting])
	n, okN := toFloat(info[KeyNorthing])
	if !okE || !okN {
		return nil, fmt.Errorf("add geometry: %w", ErrNoGeoInfo)
	}
	info[KeyGeom] = Point{X: e, Y: n, SRID: epsg}
	return info, nil
}

// WGS84 ellipsoid constants for the transverse mercator series.
const (
	utmK0 = 0.9996
	utmE  = 0.00669438
	utmR  = 6378137.0
)

// latLonToZone projects into a caller-chosen zone, which may differ from the
// zone the longitude naturally falls in. The series matches UTM.FromLatLon.
func latLonToZone(lat, lon float64, zone int) (float64, float64) {
	e2 := utmE * utmE
	e3 := e2 * utmE
	ep2 := utmE / (1 - utmE)

	m1 := 1 - utmE/4 - 3*e2/64 - 5*e3/256
	m2 := 3*utmE/8 + 3*e2/32 + 45*e3/1024
	m3 := 15*e2/256 + 45*e3/1024
	m4 := 35 * e3 / 3072

	latRad := lat * math.Pi / 180
	latSin, latCos := math.Sincos(latRad)
	latTan := latSin / latCos
	latTan2 := latTan * latTan
	latTan4 := latTan2 * latTan2

	centralLon := float64((zone-1)*6 - 180 + 3)
	dLon := (lon - centralLon) * math.Pi / 180
	dLon = math.Mod(dLon+math.Pi, 2*math.Pi)
	if dLon < 0 {
		dLon += 2 * math.Pi
	}
	dLon -= math.Pi

	n := utmR / math.Sqrt(1-utmE*latSin*latSin)
	c := ep2 * latCos * latCos
	a := latCos * dLon
	m := utmR * (m1*latRad - m2*math.Sin(2*latRad) + m3*math.Sin(4*latRad) - m4*math.Sin(6*latRad))

	easting := utmK0*n*(a+
		math.Pow(a, 3)/6*(1-latTan2+c)+
		math.Pow(a, 5)/120*(5-18*latTan2+latTan4+72*c-58*ep2)) + 500000

	northing := utmK0 * (m + n*latTan*(a*a/2+
		math.Pow(a, 4)/24*(5-latTan2+9*c+4*c*c)+
		math.Pow(a, 6)/720*(61-58*latTan2+latTan4+600*c-330*ep2)))
	if lat < 0 {
		northing += 10000000
	}
	return easting, northing
}
