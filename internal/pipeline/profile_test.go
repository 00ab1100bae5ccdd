package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

const densityHeader = `# Location,Grand Mesa
# Site,COGM1N20_20200205
# PitID,COGM1N20_20200205
# Date/Time,2020-02-05-13:30
# UTM Zone,12N
# Easting,743281
# Northing,4324005
`

func newProfileUploader(store pipeline.Store) *pipeline.ProfileUploader {
	return pipeline.NewProfileUploader(store, nil, newTestLogger(), newTestMetrics())
}

func TestProfileUploader_Density(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)

	res, err := u.Upload(context.Background(), "testdata/density.csv", domain.Options{Timezone: "MST"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, []string{"density"}, res.Variables)

	require.Len(t, store.layers, 1)
	assert.Empty(t, store.sites)
	b := store.layers[0]
	assert.Equal(t, domain.MeasurementKey{Name: "density", Units: "kg/m3"}, b.Measurement)

	site := b.Site
	assert.Equal(t, "COGM1N20_20200205", site.Name)
	assert.Equal(t, "COGM1N20_20200205", site.SiteID)
	assert.Equal(t, "Grand Mesa", site.Campaign)
	assert.Equal(t, time.Date(2020, 2, 5, 0, 0, 0, 0, time.UTC), site.Date)
	require.NotNil(t, site.Datetime)
	assert.True(t, site.Datetime.Equal(time.Date(2020, 2, 5, 20, 30, 0, 0, time.UTC)))
	require.NotNil(t, site.Geom)
	assert.Equal(t, domain.Point{X: 743281, Y: 4324005, SRID: 26912}, *site.Geom)

	require.Len(t, b.Rows, 3)
	first := b.Rows[0]
	assert.InDelta(t, 35, first.Depth, 1e-9)
	require.NotNil(t, first.BottomDepth)
	assert.InDelta(t, 25, *first.BottomDepth, 1e-9)
	assert.Equal(t, "217.5", first.Value)
	assert.Equal(t, []string{"190", "245", ""}, first.Samples)
	assert.Equal(t, "232", b.Rows[1].Value)
	assert.Equal(t, "221", b.Rows[2].Value)
}

func TestProfileUploader_Stratigraphy(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)

	res, err := u.Upload(context.Background(), "testdata/stratigraphy.csv", domain.Options{Timezone: "MST"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"grain_size", "grain_type", "hand_hardness", "manual_wetness"}, res.Variables)
	assert.Equal(t, 12, res.Rows)

	byName := map[string]domain.LayerBatch{}
	for _, b := range store.layers {
		byName[b.Measurement.Name] = b
	}
	require.Len(t, byName, 4)

	gt := byName["grain_type"]
	require.Len(t, gt.Rows, 3)
	assert.Equal(t, []string{"FC", "FC", "DH"}, []string{gt.Rows[0].Value, gt.Rows[1].Value, gt.Rows[2].Value})
	assert.Equal(t, "Crust at top", gt.Rows[1].Comments)
	assert.Empty(t, gt.Rows[0].Comments)
	assert.Equal(t, "mm", byName["grain_size"].Measurement.Units)
}

func TestProfileUploader_HeaderOnlySubmitsSite(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)
	path := writeFile(t, "empty.csv", densityHeader+"# Top (cm),Bottom (cm),Density (kg/m3)\n")

	res, err := u.Upload(context.Background(), path, domain.Options{Timezone: "MST"})
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	require.Len(t, store.sites, 1)
	assert.Equal(t, "COGM1N20_20200205", store.sites[0].Name)
	assert.Equal(t, domain.DateAccessed(path), store.siteAccessed[0])
	assert.Empty(t, store.layers)
}

func TestProfileUploader_AllValuesMissingSubmitsSite(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)
	path := writeFile(t, "nan.csv", densityHeader+"# Top (cm),Bottom (cm),Density (kg/m3)\n35,25,-9999\n25,15,NaN\n")

	res, err := u.Upload(context.Background(), path, domain.Options{Timezone: "MST"})
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.Len(t, store.sites, 1)
	assert.Empty(t, store.layers)
}

func TestProfileUploader_UnknownColumn(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)
	path := writeFile(t, "bad.csv", densityHeader+"# Top (cm),Bottom (cm),Wingspan\n35,25,1\n")

	_, err := u.Upload(context.Background(), path, domain.Options{Timezone: "MST"})
	require.Error(t, err)
	assert.Equal(t, domain.KindVocabulary, domain.KindOf(err))
	assert.Contains(t, err.Error(), "wingspan")
	assert.Contains(t, err.Error(), path)
	assert.Zero(t, store.calls())
}

func TestProfileUploader_FlagsTooLong(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)
	path := writeFile(t, "flags.csv", densityHeader+
		"# Top (cm),Bottom (cm),Density (kg/m3),Flags\n35,25,190,IS\n25,15,228,IS ICE LENS VOID\n")

	_, err := u.Upload(context.Background(), path, domain.Options{Timezone: "MST", FlagsMaxLength: 5})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrFlagsLength)
	assert.Zero(t, store.calls(), "no batch is submitted when any row fails")
}

func TestProfileUploader_FlagsJoinComments(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)
	path := writeFile(t, "flags.csv", densityHeader+
		"# Top (cm),Bottom (cm),Density (kg/m3),Flags\n35,25,190,I S\n25,15,228,\n")

	_, err := u.Upload(context.Background(), path, domain.Options{Timezone: "MST", Comments: "pit wall"})
	require.NoError(t, err)
	require.Len(t, store.layers, 1)
	rows := store.layers[0].Rows
	assert.Equal(t, "IS", rows[0].Flags)
	assert.Equal(t, "pit wall; flags = IS", rows[0].Comments)
	assert.Equal(t, "pit wall", rows[1].Comments)
}

func TestProfileUploader_SnowMicroPen(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)

	_, err := u.Upload(context.Background(), "testdata/S06M0874_2N12_20200131.CSV", domain.Options{
		Timezone:     "UTC",
		Name:         "S06M0874",
		CampaignName: "Grand Mesa",
		Instrument:   "snowmicropen",
	})
	require.NoError(t, err)
	require.Len(t, store.layers, 1)

	b := store.layers[0]
	assert.Equal(t, "force", b.Measurement.Name)
	assert.Equal(t, "N", b.Measurement.Units)
	assert.Equal(t, "snowmicropen", b.Instrument.Name)
	assert.Equal(t, "S06M0874", b.Site.Name)

	require.Len(t, b.Rows, 3)
	want := []float64{0, -10, -20}
	for i, r := range b.Rows {
		assert.InDelta(t, want[i], r.Depth, 1e-9)
		assert.Equal(t, "fname = S06M0874_2N12_20200131.CSV, serial no. = 06", r.Comments)
	}
}

func TestProfileUploader_DepthFormatOverride(t *testing.T) {
	store := &mockStore{}
	u := newProfileUploader(store)

	_, err := u.Upload(context.Background(), "testdata/density.csv", domain.Options{
		Timezone:    "MST",
		DepthFormat: domain.SurfaceDatum,
	})
	require.NoError(t, err)
	rows := store.layers[0].Rows
	assert.InDelta(t, 0, rows[0].Depth, 1e-9)
	assert.InDelta(t, -10, *rows[0].BottomDepth, 1e-9)
	assert.InDelta(t, -20, rows[2].Depth, 1e-9)
}

func TestProfileUploader_StoreError(t *testing.T) {
	boom := domain.NewError(domain.KindStorage, errors.New("connection reset"))
	store := &mockStore{err: boom}
	u := newProfileUploader(store)

	_, err := u.Upload(context.Background(), "testdata/density.csv", domain.Options{Timezone: "MST"})
	require.Error(t, err)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	assert.Contains(t, err.Error(), "testdata/density.csv")
}

func TestProfileUploader_InvalidOptions(t *testing.T) {
	u := newProfileUploader(&mockStore{})
	_, err := u.Upload(context.Background(), "testdata/density.csv", domain.Options{})
	require.Error(t, err)
	assert.Equal(t, domain.KindConfig, domain.KindOf(err))
}

func TestProfile_CheckAgainstSiteDetails(t *testing.T) {
	u := newProfileUploader(&mockStore{})
	sites := pipeline.NewSiteUploader(&mockStore{}, nil, newTestLogger(), newTestMetrics())

	details, err := sites.Parse("testdata/site_details.csv", domain.Options{Timezone: "MST"})
	require.NoError(t, err)

	p, err := u.Parse("testdata/density.csv", domain.Options{Timezone: "MST"})
	require.NoError(t, err)
	require.NoError(t, p.Check(details.Info))

	p, err = u.Parse("testdata/density.csv", domain.Options{
		Timezone: "MST",
		Extra:    map[string]string{"Location": "Boise River"},
	})
	require.NoError(t, err)
	err = p.Check(details.Info)
	require.Error(t, err)
	assert.Equal(t, domain.KindMismatch, domain.KindOf(err))
	assert.Contains(t, err.Error(), "site_name")
}
