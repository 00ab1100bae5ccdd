package domain

import (
	"fmt"
	"math"
)

// DepthFormat names a depth datum convention.
type DepthFormat string

const (
	// SnowHeight is positive and increases upward from the ground.
	SnowHeight DepthFormat = "snow_height"
	// SurfaceDatum is zero at the snow surface and negative downward.
	SurfaceDatum DepthFormat = "surface_datum"
)

// ParseDepthFormat validates a user-supplied datum name.
func ParseDepthFormat(s string) (DepthFormat, error) {
	switch DepthFormat(s) {
	case SnowHeight, SurfaceDatum:
		return DepthFormat(s), nil
	case "":
		return SnowHeight, nil
	}
	return "", Errorf(KindConfig, "unknown depth format %q", s)
}

func finiteBounds(depths []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, d := range depths {
		if math.IsNaN(d) {
			continue
		}
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
		ok = true
	}
	return lo, hi, ok
}

// StandardizeDepth converts depths into the desired datum. isSMP marks raw
// penetrometer depths (already converted to cm) that increase downward from
// the start of the trace. Depths already in the desired datum are returned
// unchanged. NaN entries stay NaN.
func StandardizeDepth(depths []float64, desired DepthFormat, isSMP bool) []float64 {
	out := make([]float64, len(depths))
	copy(out, depths)

	lo, hi, ok := finiteBounds(depths)
	if !ok {
		return out
	}

	var shift func(d float64) float64
	switch desired {
	case SnowHeight:
		switch {
		case isSMP:
			shift = func(d float64) float64 { return hi - d }
		case lo < 0:
			shift = func(d float64) float64 { return d - lo }
		}
	case SurfaceDatum:
		switch {
		case isSMP:
			shift = func(d float64) float64 { return -(d - lo) }
		case hi > 0:
			shift = func(d float64) float64 { return d - hi }
		}
	}
	if shift == nil {
		return out
	}

	for i, d := range out {
		if !math.IsNaN(d) {
			out[i] = shift(d)
		}
	}
	return out
}

// StandardizeLayers converts top depths and applies the same per-row shift
// to bottom depths so layer thickness is preserved. bottom may be nil.
func StandardizeLayers(depth, bottom []float64, desired DepthFormat, isSMP bool) ([]float64, []float64, error) {
	if bottom != nil && len(bottom) != len(depth) {
		return nil, nil, fmt.Errorf("bottom depth has %d values, depth has %d", len(bottom), len(depth))
	}

	newDepth := StandardizeDepth(depth, desired, isSMP)
	if bottom == nil {
		return newDepth, nil, nil
	}

	newBottom := make([]float64, len(bottom))
	for i := range bottom {
		if isSMP {
			// SMP conversions mirror the axis, so thickness flips sign with it.
			newBottom[i] = newDepth[i] - (bottom[i] - depth[i])
			continue
		}
		newBottom[i] = bottom[i] - (depth[i] - newDepth[i])
	}
	return newDepth, newBottom, nil
}
