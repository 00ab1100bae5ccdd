package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
)

var errNoCampaign = errors.New("campaign name is required")

// firstNonEmpty returns the first non-blank value.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func infoString(info domain.Info, key string) string {
	s, _ := info.String(key)
	return s
}

// splitObservers splits a comma or semicolon separated list of names.
func splitObservers(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" && !domain.IsMissing(p) {
			out = append(out, p)
		}
	}
	return out
}

// siteFromInfo builds the site a profile or site details file describes.
// The pit id names the site when present, falling back to the site id.
func siteFromInfo(info domain.Info, opts domain.Options) (domain.SiteRecord, error) {
	site := domain.SiteRecord{
		SiteID:      firstNonEmpty(opts.SiteID, infoString(info, "site_id")),
		Description: infoString(info, "site_name"),
		Campaign:    firstNonEmpty(opts.CampaignName, infoString(info, "campaign"), infoString(info, "site_name")),
		DOI:         firstNonEmpty(opts.DOI, infoString(info, "doi")),
		Observers:   splitObservers(firstNonEmpty(opts.Observers, infoString(info, "observers"))),
		Elevation:   info.FloatPtr("elevation"),
		Details: domain.SiteDetails{
			Aspect:             info.FloatPtr("aspect"),
			SlopeAngle:         info.FloatPtr("slope_angle"),
			AirTemp:            info.FloatPtr("air_temp"),
			TotalDepth:         info.FloatPtr("total_depth"),
			WeatherDescription: infoString(info, "weather_description"),
			Precip:             infoString(info, "precip"),
			SkyCover:           infoString(info, "sky_cover"),
			Wind:               infoString(info, "wind"),
			GroundCondition:    infoString(info, "ground_condition"),
			GroundRoughness:    infoString(info, "ground_roughness"),
			GroundVegetation:   infoString(info, "ground_vegetation"),
			VegetationHeight:   infoString(info, "vegetation_height"),
			TreeCanopy:         infoString(info, "tree_canopy"),
			SiteNotes:          infoString(info, "site_notes"),
		},
	}
	site.Name = firstNonEmpty(opts.Name, infoString(info, "pit_id"), site.SiteID)

	if site.Name == "" {
		return domain.SiteRecord{}, domain.Errorf(domain.KindValidation, "no pit_id or site_id names the site")
	}
	date, ok := info.Time(domain.KeyDate)
	if !ok {
		return domain.SiteRecord{}, domain.Errorf(domain.KindValidation, "site %s has no date", site.Name)
	}
	site.Date = date
	if site.Campaign == "" {
		return domain.SiteRecord{}, domain.NewError(domain.KindValidation, errNoCampaign)
	}
	if dt, ok := info.Time(domain.KeyDateTime); ok {
		site.Datetime = &dt
	}
	if p, ok := info[domain.KeyGeom].(domain.Point); ok {
		site.Geom = &p
	}
	return site, nil
}

// cleanFlags strips spaces from a flags cell and enforces the column width.
func cleanFlags(flags string, maxLen int) (string, error) {
	f := strings.ReplaceAll(flags, " ", "")
	if domain.IsMissing(f) {
		return "", nil
	}
	if len(f) > maxLen {
		return "", domain.NewError(domain.KindValidation, fmt.Errorf("%w: %q is %d characters, limit %d", domain.ErrFlagsLength, f, len(f), maxLen))
	}
	return f, nil
}

// joinComments appends flags to comment text.
func joinComments(comments, flags string) string {
	comments = strings.TrimSpace(comments)
	if domain.IsMissing(comments) {
		comments = ""
	}
	if flags == "" {
		return comments
	}
	if comments == "" {
		return "flags = " + flags
	}
	return comments + "; flags = " + flags
}
