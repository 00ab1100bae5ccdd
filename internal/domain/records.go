package domain

import "time"

// InstrumentKey is the natural key of an instrument.
type InstrumentKey struct {
	Name  string
	Model string
}

// IsZero reports whether no instrument was named.
func (k InstrumentKey) IsZero() bool { return k.Name == "" && k.Model == "" }

// MeasurementKey is the natural key of a measurement type.
type MeasurementKey struct {
	Name    string
	Units   string
	Derived bool
}

// SiteDetails are the descriptive attributes recorded at a pit.
type SiteDetails struct {
	Aspect             *float64
	SlopeAngle         *float64
	AirTemp            *float64
	TotalDepth         *float64
	WeatherDescription string
	Precip             string
	SkyCover           string
	Wind               string
	GroundCondition    string
	GroundRoughness    string
	GroundVegetation   string
	VegetationHeight   string
	TreeCanopy         string
	SiteNotes          string
}

// SiteRecord identifies a pit visit, keyed by (Name, Date).
type SiteRecord struct {
	Name        string
	Date        time.Time
	Description string
	SiteID      string
	Campaign    string
	DOI         string
	Observers   []string
	Datetime    *time.Time
	Elevation   *float64
	Geom        *Point
	Details     SiteDetails
}

// LayerRow is one measured value at a depth.
type LayerRow struct {
	Depth       float64
	BottomDepth *float64
	// Value is the reported value, numeric text for measured quantities and
	// free text for classifications like grain_type.
	Value    string
	Samples  []string
	Comments string
	Flags    string
}

// LayerBatch is every row of one variable in one profile file. It is
// stored in a single transaction.
type LayerBatch struct {
	Site         SiteRecord
	Measurement  MeasurementKey
	Instrument   InstrumentKey
	DOI          string
	DateAccessed time.Time
	Rows         []LayerRow
}

// ObservationRecord links point or image facts to their campaign and
// instrument. Keyed by (Name, Date).
type ObservationRecord struct {
	Name        string
	Date        time.Time
	Description string
	Campaign    string
	DOI         string
	Observer    string
	Instrument  InstrumentKey
	Measurement MeasurementKey
}

// PointRow is one measured value at a location and time.
type PointRow struct {
	Datetime  *time.Time
	Date      time.Time
	Elevation *float64
	Geom      Point
	Value     float64
	Comments  string
	Flags     string
}

// PointBatch is every row of one observation group.
type PointBatch struct {
	Observation  ObservationRecord
	DateAccessed time.Time
	Rows         []PointRow
}

// ImageRecord is one persisted raster.
type ImageRecord struct {
	Observation  ObservationRecord
	Type         RasterType
	Handle       string
	EPSG         int
	Tiles        int
	DateAccessed time.Time
}
