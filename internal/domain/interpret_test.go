package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertCardinalToDegree(t *testing.T) {
	tests := []struct {
		token    string
		expected float64
	}{
		{"n", 0},
		{"S", 180},
		{"S/SW", 202.5},
		{"West", 270},
		{"Northeast", 45},
		{"NNW", 337.5},
		{" ese ", 112.5},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ConvertCardinalToDegree(tt.token)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestConvertCardinalToDegree_Errors(t *testing.T) {
	for _, token := range []string{"", "Up", "NNNE"} {
		_, err := ConvertCardinalToDegree(token)
		require.Error(t, err, token)
		assert.Equal(t, KindFormat, KindOf(err))
	}
}

func TestParseDegrees(t *testing.T) {
	tests := []struct {
		input    any
		expected any
	}{
		{"25", 25.0},
		{"25°", 25.0},
		{"12 degrees", 12.0},
		{"-3.5 deg", -3.5},
		{10.0, 10.0},
		{"NaN", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := ParseDegrees(tt.input)
		require.NoError(t, err, "%v", tt.input)
		assert.Equal(t, tt.expected, got, "%v", tt.input)
	}

	_, err := ParseDegrees("steep")
	require.Error(t, err)
}

func TestManageAspect(t *testing.T) {
	info := map[string]any{"aspect": "S/SW"}
	require.NoError(t, ManageAspect(info))
	assert.Equal(t, 202.5, info["aspect"])

	info = map[string]any{"aspect": "90"}
	require.NoError(t, ManageAspect(info))
	assert.Equal(t, 90.0, info["aspect"])

	info = map[string]any{"aspect": "sideways"}
	err := ManageAspect(info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aspect")
	assert.Equal(t, KindFormat, KindOf(err))

	require.NoError(t, ManageAspect(map[string]any{}))
}

func TestManageDegrees(t *testing.T) {
	info := map[string]any{"slope_angle": "5 deg", "air_temp": "-2.0"}
	require.NoError(t, ManageDegrees(info))
	assert.Equal(t, 5.0, info["slope_angle"])
	assert.Equal(t, -2.0, info["air_temp"])

	err := ManageDegrees(map[string]any{"slope_angle": "flat"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slope_angle")
}

func TestTimezoneFromSiteID(t *testing.T) {
	tests := []struct {
		siteID string
		tz     string
	}{
		{"COGM", "US/Mountain"},
		{"CAAM", "US/Pacific"},
		{"akfb", "US/Alaska"},
	}
	for _, tt := range tests {
		got, err := TimezoneFromSiteID(tt.siteID)
		require.NoError(t, err)
		assert.Equal(t, tt.tz, got)
	}

	_, err := TimezoneFromSiteID("ZZ99")
	require.Error(t, err)
}

func TestSiteIDFromFilename(t *testing.T) {
	re := regexp.MustCompile(`SNEX20_TS_SP_\d{8}_\d{4}_([a-zA-Z0-9]*)_data_.*_v02\.csv`)

	id, ok := SiteIDFromFilename("SNEX20_TS_SP_20191029_1210_COFEJ1_data_gapFilledDensity_v02.csv", re)
	require.True(t, ok)
	assert.Equal(t, "COFEJ1", id)

	_, ok = SiteIDFromFilename("unrelated.csv", re)
	assert.False(t, ok)
}
