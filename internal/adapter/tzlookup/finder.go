// Package tzlookup resolves the IANA timezone of a coordinate for files
// whose rows carry local times from many places.
package tzlookup

import (
	"context"
	"fmt"

	"github.com/ringsaturn/tzf"
)

// nameFinder is the part of tzf.F used here.
type nameFinder interface {
	GetTimezoneName(lng, lat float64) string
}

// Finder looks timezones up in the polygon set bundled with tzf.
type Finder struct {
	f nameFinder
}

// NewFinder loads the default tzf polygons.
func NewFinder() (*Finder, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load timezone polygons: %w", err)
	}
	return &Finder{f: f}, nil
}

// TimezoneAt returns the timezone name containing the point.
func (f *Finder) TimezoneAt(_ context.Context, lat, lon float64) (string, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", fmt.Errorf("coordinate %v, %v out of range", lat, lon)
	}
	name := f.f.GetTimezoneName(lon, lat)
	if name == "" {
		return "", fmt.Errorf("no timezone found at %v, %v", lat, lon)
	}
	return name, nil
}
