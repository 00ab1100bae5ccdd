package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RasterType is a raster product. SAR products carry a description,
// an abbreviation used in annotation keys, and the pass they belong to.
type RasterType struct {
	Code         string
	Description  string
	Abbreviation string
	// Pass is 1 or 2 for single-pass amplitude products, 0 otherwise.
	Pass int
}

var (
	RasterDEM          = RasterType{Code: "DEM"}
	RasterDepth        = RasterType{Code: "depth"}
	RasterSWE          = RasterType{Code: "swe"}
	RasterCanopyHeight = RasterType{Code: "canopy_height"}

	RasterINT  = RasterType{Code: "int", Description: "interferogram", Abbreviation: "interferogram"}
	RasterAMP1 = RasterType{Code: "amp1", Description: "amplitude of pass 1", Abbreviation: "amplitude", Pass: 1}
	RasterAMP2 = RasterType{Code: "amp2", Description: "amplitude of pass 2", Abbreviation: "amplitude", Pass: 2}
	RasterCOR  = RasterType{Code: "corr", Description: "correlation", Abbreviation: "correlation"}
)

var rasterTypes = []RasterType{
	RasterDEM, RasterDepth, RasterSWE, RasterCanopyHeight,
	RasterINT, RasterAMP1, RasterAMP2, RasterCOR,
}

func (r RasterType) String() string { return r.Code }

// IsSAR reports whether the product comes from an annotated SAR flight.
func (r RasterType) IsSAR() bool { return r.Abbreviation != "" }

// RasterTypeByCode finds a raster type by its code, ignoring case. The
// variant name "COR" is accepted alongside its code "corr".
func RasterTypeByCode(code string) (RasterType, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "cor" {
		return RasterCOR, nil
	}
	for _, r := range rasterTypes {
		if strings.ToLower(r.Code) == c {
			return r, nil
		}
	}
	return RasterType{}, Errorf(KindConfig, "unknown raster type %q", code)
}

// ErrRasterDate is returned when raster metadata lacks a date.
var ErrRasterDate = errors.New("date must be provided in metadata or extracted from filename")

// RasterMetadata describes one raster file before persistence.
type RasterMetadata struct {
	Type     RasterType
	Date     time.Time
	Units    string
	Comments string
	// Name is the measurement type recorded for the raster.
	Name string
}

// MetadataFromSingleFile builds metadata for a non-SAR raster. Every
// single-file product is stored in meters.
func MetadataFromSingleFile(t RasterType, date time.Time) (RasterMetadata, error) {
	if date.IsZero() {
		return RasterMetadata{}, NewError(KindValidation, ErrRasterDate)
	}
	m := RasterMetadata{Type: t, Date: date, Name: t.Code, Units: "unknown"}
	switch t {
	case RasterDEM, RasterDepth, RasterSWE, RasterCanopyHeight:
		m.Units = "meters"
	}
	return m, nil
}

// MetadataFromAnnotation builds metadata for a SAR product from its flight
// annotation. Component is "real" or "imaginary" for interferograms.
func MetadataFromAnnotation(ann Annotation, t RasterType, component string) (RasterMetadata, error) {
	if !t.IsSAR() {
		return RasterMetadata{}, Errorf(KindConfig, "raster type %s has no annotation", t)
	}
	m := RasterMetadata{Type: t, Name: "insar " + t.Abbreviation}
	if t == RasterINT && component != "" {
		m.Name += " " + component
	}

	pass := 2
	if t.Pass != 0 {
		pass = t.Pass
	}
	start, err := ann.Time(fmt.Sprintf("start time of acquisition for pass %d", pass))
	if err != nil {
		return RasterMetadata{}, err
	}
	m.Date = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	units, ok := ann[t.Abbreviation+" units"]
	if !ok {
		return RasterMetadata{}, Errorf(KindParse, "annotation has no %s units", t.Abbreviation)
	}
	m.Units = units.Text()

	comment, err := FlightComment(t.Description, ann)
	if err != nil {
		return RasterMetadata{}, err
	}
	comment += ", DEM used = " + ann["dem used in processing"].Text()
	comment += ", Polarization = " + ann["polarization"].Text()
	m.Comments = comment
	return m, nil
}
