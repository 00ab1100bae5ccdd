package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

func TestSiteUploader_Upload(t *testing.T) {
	store := &mockStore{}
	u := pipeline.NewSiteUploader(store, nil, newTestLogger(), newTestMetrics())

	_, err := u.Upload(context.Background(), "testdata/site_details.csv", domain.Options{Timezone: "MST"})
	require.NoError(t, err)
	require.Len(t, store.sites, 1)

	site := store.sites[0]
	assert.Equal(t, "COGM1N20_20200205", site.Name)
	assert.Equal(t, "Grand Mesa", site.Campaign)
	assert.Equal(t, "Grand Mesa", site.Description)
	assert.Equal(t, time.Date(2020, 2, 5, 0, 0, 0, 0, time.UTC), site.Date)
	assert.Equal(t, []string{"Chris Hiemstra", "Hans Lievens"}, site.Observers)
	assert.Equal(t, domain.DateAccessed("testdata/site_details.csv"), store.siteAccessed[0])

	d := site.Details
	require.NotNil(t, d.SlopeAngle)
	assert.InDelta(t, 5, *d.SlopeAngle, 1e-9)
	require.NotNil(t, d.Aspect)
	assert.InDelta(t, 180, *d.Aspect, 1e-9)
	require.NotNil(t, d.AirTemp)
	assert.InDelta(t, -2.5, *d.AirTemp, 1e-9)
	require.NotNil(t, d.TotalDepth)
	assert.InDelta(t, 35, *d.TotalDepth, 1e-9)
	assert.Equal(t, "Sunny, cold", d.WeatherDescription)
	assert.Empty(t, d.Precip, "None is a missing value")
	assert.Equal(t, "Few", d.SkyCover)
	assert.Equal(t, "Calm", d.Wind)
	assert.Equal(t, "Frozen", d.GroundCondition)
	assert.Equal(t, "No Trees", d.TreeCanopy)
	assert.Equal(t, "Pit dug near the road", d.SiteNotes)
}

func TestSiteUploader_CampaignOverride(t *testing.T) {
	store := &mockStore{}
	u := pipeline.NewSiteUploader(store, nil, newTestLogger(), newTestMetrics())

	_, err := u.Upload(context.Background(), "testdata/site_details.csv", domain.Options{
		Timezone:     "MST",
		CampaignName: "SnowEx 2020",
		DOI:          "10.5067/12345",
	})
	require.NoError(t, err)
	require.Len(t, store.sites, 1)
	assert.Equal(t, "SnowEx 2020", store.sites[0].Campaign)
	assert.Equal(t, "10.5067/12345", store.sites[0].DOI)
}

func TestSiteUploader_MissingSiteName(t *testing.T) {
	store := &mockStore{}
	u := pipeline.NewSiteUploader(store, nil, newTestLogger(), newTestMetrics())
	path := writeFile(t, "site.csv", "# Location,Grand Mesa\n# Date,2020-02-05\n# Latitude,39.03\n# Longitude,-108.15\n")

	_, err := u.Upload(context.Background(), path, domain.Options{Timezone: "MST"})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Zero(t, store.calls())
}
