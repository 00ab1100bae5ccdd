package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "file timezone", opts: Options{Timezone: "US/Mountain"}},
		{name: "row timezone", opts: Options{RowBasedTimezone: true}},
		{
			name:    "both timezones",
			opts:    Options{Timezone: "UTC", RowBasedTimezone: true},
			wantErr: "cannot have row based and file based timezone",
		},
		{name: "no timezone", opts: Options{}, wantErr: "a valid in_timezone was not provided"},
		{name: "local timezone", opts: Options{Timezone: "Local"}, wantErr: "a valid in_timezone was not provided"},
		{name: "unknown timezone", opts: Options{Timezone: "Mars/Olympus"}, wantErr: "Timezone (timezone)"},
		{name: "separator too long", opts: Options{Timezone: "UTC", HeaderSep: "::"}, wantErr: "HeaderSep (len)"},
		{name: "bad zone", opts: Options{Timezone: "UTC", UTMZone: 61}, wantErr: "UTMZone (lte)"},
		{name: "bad depth format", opts: Options{Timezone: "UTC", DepthFormat: "upside_down"}, wantErr: "DepthFormat (oneof)"},
		{name: "negative flags width", opts: Options{Timezone: "UTC", FlagsMaxLength: -1}, wantErr: "FlagsMaxLength (gt)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, KindConfig, KindOf(err))
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	assert.Equal(t, ",", o.HeaderSep)
	assert.Equal(t, "UTC", o.OutTimezone)
	assert.Equal(t, DefaultFlagsMaxLength, o.FlagsMaxLength)
	assert.Equal(t, SnowHeight, o.DepthFormat)
	assert.True(t, o.Northern())

	kept := Options{HeaderSep: ":", FlagsMaxLength: 10, SouthernHemisphere: true}.WithDefaults()
	assert.Equal(t, ":", kept.HeaderSep)
	assert.Equal(t, 10, kept.FlagsMaxLength)
	assert.False(t, kept.Northern())
}
