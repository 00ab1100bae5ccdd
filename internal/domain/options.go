package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultFlagsMaxLength is the width of the flags column.
const DefaultFlagsMaxLength = 50

// Options is the per-upload configuration contract.
type Options struct {
	// Timezone is the file-level input timezone. Must be empty when
	// RowBasedTimezone is set.
	Timezone         string `validate:"omitempty,timezone"`
	RowBasedTimezone bool
	OutTimezone      string `validate:"omitempty,timezone"`

	// HeaderSep splits metadata lines into key and value.
	HeaderSep string `validate:"omitempty,len=1"`

	DOI             string
	Instrument      string
	InstrumentModel string
	CampaignName    string
	Derived         bool
	SiteID          string
	Name            string
	Observers       string
	Comments        string

	// EPSG overrides the code derived from the utm zone.
	EPSG int `validate:"omitempty,gte=1024,lte=999999"`
	// UTMZone forces projection into a zone.
	UTMZone            int `validate:"omitempty,gte=1,lte=60"`
	RowBasedCRS        bool
	SouthernHemisphere bool

	AllowMapFailure bool
	DepthFormat     DepthFormat `validate:"omitempty,oneof=snow_height surface_datum"`
	FlagsMaxLength  int         `validate:"omitempty,gt=0"`

	// Units overrides the unit of a variable code.
	Units map[string]string
	// Extra is merged over the parsed header, replacing what the file says.
	Extra map[string]string
}

var validate = validator.New()

// Validate checks field formats and the timezone rules.
func (o Options) Validate() error {
	if o.RowBasedTimezone && o.Timezone != "" {
		return Errorf(KindConfig, "cannot have row based and file based timezone")
	}
	if !o.RowBasedTimezone && (o.Timezone == "" || strings.Contains(strings.ToLower(o.Timezone), "local")) {
		return Errorf(KindConfig, "a valid in_timezone was not provided")
	}
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return Errorf(KindConfig, "invalid options: %s", strings.Join(fields, ", "))
		}
		return Errorf(KindConfig, "invalid options: %w", err)
	}
	return nil
}

// WithDefaults fills unset optional fields.
func (o Options) WithDefaults() Options {
	if o.HeaderSep == "" {
		o.HeaderSep = ","
	}
	if o.OutTimezone == "" {
		o.OutTimezone = "UTC"
	}
	if o.FlagsMaxLength == 0 {
		o.FlagsMaxLength = DefaultFlagsMaxLength
	}
	if o.DepthFormat == "" {
		o.DepthFormat = SnowHeight
	}
	return o
}

// Northern reports whether coordinates are in the northern hemisphere.
func (o Options) Northern() bool { return !o.SouthernHemisphere }
