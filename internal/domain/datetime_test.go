package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, hh, mm, ss, ns int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, ns, time.UTC)
}

func TestAddDateTimeKeys(t *testing.T) {
	tests := []struct {
		name     string
		info     map[string]any
		inTZ     string
		expected time.Time
	}{
		{"combined date/time", map[string]any{"date/time": "2020-01-01-00:00"}, "US/Mountain", utc(2020, 1, 1, 7, 0, 0, 0)},
		{"combined local time", map[string]any{"date/local_time": "2020-01-01-00:00"}, "US/Mountain", utc(2020, 1, 1, 7, 0, 0, 0)},
		{"split date and time", map[string]any{"date": "2020-01-01", "time": "00:00"}, "US/Mountain", utc(2020, 1, 1, 7, 0, 0, 0)},
		{"day of year", map[string]any{"utcyear": 2020, "utcdoy": 1, "utctod": "070000.00"}, "US/Mountain", utc(2020, 1, 1, 7, 0, 0, 0)},
		{"day of year subsecond", map[string]any{"utcyear": "2020", "utcdoy": "28", "utctod": 214317.222}, "UTC", utc(2020, 1, 28, 21, 43, 17, 222000000)},
		{"compact date and time", map[string]any{"date": "012820", "time": "161549.557"}, "UTC", utc(2020, 1, 28, 16, 15, 49, 557000000)},
		{"ampersand key", map[string]any{"date&time": "1/27/2020 11:00"}, "US/Pacific", utc(2020, 1, 27, 19, 0, 0, 0)},
		{"local standard time", map[string]any{"date/local_standard_time": "2019-12-20T13:00"}, "US/Pacific", utc(2019, 12, 20, 21, 0, 0, 0)},
		{"abbreviated month", map[string]any{"date": "28-Jan-20", "time": "16:07"}, "MST", utc(2020, 1, 28, 23, 7, 0, 0)},
		{"hhmm time", map[string]any{"date": "20200205", "time": "1330"}, "UTC", utc(2020, 2, 5, 13, 30, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddDateTimeKeys(tt.info, tt.inTZ, "UTC")
			require.NoError(t, err)

			dt, ok := got[KeyDateTime].(time.Time)
			require.True(t, ok, "datetime should be set")
			assert.True(t, tt.expected.Equal(dt), "expected %s, got %s", tt.expected, dt)

			y, m, d := tt.expected.Date()
			assert.Equal(t, time.Date(y, m, d, 0, 0, 0, 0, time.UTC), got[KeyDate])
			assert.Equal(t, TimeOfDayOf(tt.expected), got[KeyTime])
		})
	}
}

func TestAddDateTimeKeys_RemovesRawKeys(t *testing.T) {
	got, err := AddDateTimeKeys(map[string]any{"date/time": "2020-01-01-00:00", "site_name": "Grand Mesa"}, "UTC", "UTC")
	require.NoError(t, err)
	assert.NotContains(t, got, "date/time")
	assert.Equal(t, "Grand Mesa", got["site_name"])

	got, err = AddDateTimeKeys(map[string]any{"utcyear": 2020, "utcdoy": 1, "utctod": "000000"}, "", "UTC")
	require.NoError(t, err)
	assert.NotContains(t, got, "utcdoy")
}

func TestAddDateTimeKeys_MissingTime(t *testing.T) {
	tests := []struct {
		name string
		info map[string]any
		date time.Time
	}{
		{"no time key", map[string]any{"date": "1/27/2020"}, utc(2020, 1, 27, 0, 0, 0, 0)},
		{"nan time", map[string]any{"date": "020620", "time": "nan"}, utc(2020, 2, 6, 0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddDateTimeKeys(tt.info, "US/Pacific", "UTC")
			require.NoError(t, err)
			assert.Equal(t, tt.date, got[KeyDate])
			assert.Nil(t, got[KeyTime])
			assert.Nil(t, got[KeyDateTime])
		})
	}
}

func TestAddDateTimeKeys_Errors(t *testing.T) {
	_, err := AddDateTimeKeys(map[string]any{"date": "yesterday"}, "UTC", "UTC")
	require.Error(t, err)
	assert.Equal(t, KindFormat, KindOf(err))

	_, err = AddDateTimeKeys(map[string]any{"date": "2020-01-01"}, "", "UTC")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))

	_, err = AddDateTimeKeys(map[string]any{"date": "2020-01-01"}, "Mars/Olympus", "UTC")
	require.Error(t, err)
}

func TestAddDateTimeKeys_NoDateIsUntouched(t *testing.T) {
	got, err := AddDateTimeKeys(map[string]any{"site_name": "Grand Mesa"}, "UTC", "UTC")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"site_name": "Grand Mesa"}, got)
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "07:05:09", TimeOfDay{Hour: 7, Minute: 5, Second: 9}.String())
	assert.Equal(t, "21:43:17.222000", TimeOfDay{Hour: 21, Minute: 43, Second: 17, Nanosecond: 222000000}.String())
}
