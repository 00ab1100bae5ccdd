package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizeDepth(t *testing.T) {
	tests := []struct {
		name     string
		depths   []float64
		desired  DepthFormat
		isSMP    bool
		expected []float64
	}{
		{"height to surface", []float64{10, 5, 0}, SurfaceDatum, false, []float64{0, -5, -10}},
		{"smp to surface", []float64{0, 5, 10}, SurfaceDatum, true, []float64{0, -5, -10}},
		{"surface stays surface", []float64{0, -5, -10}, SurfaceDatum, false, []float64{0, -5, -10}},
		{"height stays height", []float64{10, 5, 0}, SnowHeight, false, []float64{10, 5, 0}},
		{"surface to height", []float64{0, -5, -10}, SnowHeight, false, []float64{10, 5, 0}},
		{"smp to height", []float64{0, 5, 10}, SnowHeight, true, []float64{10, 5, 0}},
		{"smp with offset start", []float64{2, 7, 12}, SurfaceDatum, true, []float64{0, -5, -10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StandardizeDepth(tt.depths, tt.desired, tt.isSMP)
			assert.InDeltaSlice(t, tt.expected, got, 1e-9)
		})
	}
}

func TestStandardizeDepth_RoundTrip(t *testing.T) {
	series := [][]float64{
		{10, 5, 0},
		{95, 80.5, 62, 41, 20, 0},
		{0, -3, -17.25},
	}
	for _, d := range series {
		asSurface := StandardizeDepth(StandardizeDepth(d, SurfaceDatum, false), SnowHeight, false)
		asHeight := StandardizeDepth(StandardizeDepth(d, SnowHeight, false), SurfaceDatum, false)
		if d[len(d)-1] == 0 {
			assert.InDeltaSlice(t, d, asSurface, 1e-9, "height -> surface -> height")
		} else {
			assert.InDeltaSlice(t, d, asHeight, 1e-9, "surface -> height -> surface")
		}
	}
}

func TestStandardizeDepth_KeepsNaN(t *testing.T) {
	got := StandardizeDepth([]float64{10, math.NaN(), 0}, SurfaceDatum, false)
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, -10, got[2], 1e-9)
}

func TestStandardizeDepth_Empty(t *testing.T) {
	assert.Empty(t, StandardizeDepth(nil, SnowHeight, false))
}

func TestStandardizeLayers_PreservesThickness(t *testing.T) {
	depth := []float64{0, -10, -20}
	bottom := []float64{-10, -20, -30}

	nd, nb, err := StandardizeLayers(depth, bottom, SnowHeight, false)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{20, 10, 0}, nd, 1e-9)
	assert.InDeltaSlice(t, []float64{10, 0, -10}, nb, 1e-9)
	for i := range depth {
		assert.InDelta(t, depth[i]-bottom[i], nd[i]-nb[i], 1e-9)
	}
}

func TestStandardizeLayers_SMPMirrorsBottom(t *testing.T) {
	nd, nb, err := StandardizeLayers([]float64{0, 5}, []float64{5, 10}, SurfaceDatum, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -5}, nd, 1e-9)
	assert.InDeltaSlice(t, []float64{-5, -10}, nb, 1e-9)
}

func TestStandardizeLayers_LengthMismatch(t *testing.T) {
	_, _, err := StandardizeLayers([]float64{1, 2}, []float64{1}, SnowHeight, false)
	require.Error(t, err)
}

func TestParseDepthFormat(t *testing.T) {
	f, err := ParseDepthFormat("")
	require.NoError(t, err)
	assert.Equal(t, SnowHeight, f)

	f, err = ParseDepthFormat("surface_datum")
	require.NoError(t, err)
	assert.Equal(t, SurfaceDatum, f)

	_, err = ParseDepthFormat("feet")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}
