package store

import "time"

// Dimension tables. Every natural key carries a unique index; the broker
// relies on it to detect concurrent inserts.

type Campaign struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null;uniqueIndex"`
	Description string
}

type Observer struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

type Instrument struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"not null;uniqueIndex:idx_instrument_key,priority:1"`
	Model string `gorm:"not null;default:'';uniqueIndex:idx_instrument_key,priority:2"`
}

type DOI struct {
	ID           uint   `gorm:"primaryKey"`
	DOI          string `gorm:"column:doi;not null;uniqueIndex"`
	DateAccessed time.Time
}

func (DOI) TableName() string { return "dois" }

type MeasurementType struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"not null;uniqueIndex:idx_measurement_type_key,priority:1"`
	Units   string `gorm:"not null;default:'';uniqueIndex:idx_measurement_type_key,priority:2"`
	Derived bool   `gorm:"not null;default:false;uniqueIndex:idx_measurement_type_key,priority:3"`
}

type Site struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"not null;uniqueIndex:idx_site_key,priority:1"`
	Date        time.Time `gorm:"not null;uniqueIndex:idx_site_key,priority:2"`
	Description string
	SiteID      string `gorm:"index"`
	CampaignID  *uint
	DOIID       *uint
	Datetime    *time.Time
	Elevation   *float64
	Geom        *Geometry
	Observers   []Observer `gorm:"many2many:site_observers"`

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

type PointObservation struct {
	ID                uint      `gorm:"primaryKey"`
	Name              string    `gorm:"not null;uniqueIndex:idx_point_observation_key,priority:1"`
	Date              time.Time `gorm:"not null;uniqueIndex:idx_point_observation_key,priority:2"`
	Description       string
	CampaignID        uint `gorm:"not null"`
	ObserverID        *uint
	InstrumentID      *uint
	MeasurementTypeID uint `gorm:"not null"`
	DOIID             *uint
}

type ImageObservation struct {
	ID                uint      `gorm:"primaryKey"`
	Name              string    `gorm:"not null;uniqueIndex:idx_image_observation_key,priority:1"`
	Date              time.Time `gorm:"not null;uniqueIndex:idx_image_observation_key,priority:2"`
	Description       string
	CampaignID        uint `gorm:"not null"`
	ObserverID        *uint
	InstrumentID      *uint
	MeasurementTypeID uint `gorm:"not null"`
	DOIID             *uint
}

// Fact tables.

type LayerData struct {
	ID                uint `gorm:"primaryKey"`
	SiteID            uint `gorm:"not null;index"`
	MeasurementTypeID uint `gorm:"not null;index"`
	InstrumentID      *uint
	DOIID             *uint
	Depth             float64
	BottomDepth       *float64
	Value             string
	SampleA           *string
	SampleB           *string
	SampleC           *string
	Comments          string
	Flags             string
	DateAccessed      time.Time
}

func (LayerData) TableName() string { return "layer_data" }

type PointData struct {
	ID            uint `gorm:"primaryKey"`
	ObservationID uint `gorm:"not null;index"`
	Datetime      *time.Time
	Date          time.Time
	Elevation     *float64
	Geom          Geometry
	Value         float64
	Comments      string
	Flags         string
	DateAccessed  time.Time
}

func (PointData) TableName() string { return "point_data" }

type ImageData struct {
	ID            uint   `gorm:"primaryKey"`
	ObservationID uint   `gorm:"not null;index"`
	Type          string `gorm:"not null"`
	Handle        string `gorm:"not null"`
	EPSG          int    `gorm:"column:epsg"`
	Tiles         int
	DateAccessed  time.Time
}

func (ImageData) TableName() string { return "image_data" }

func allModels() []any {
	return []any{
		&Campaign{}, &Observer{}, &Instrument{}, &DOI{}, &MeasurementType{},
		&Site{}, &PointObservation{}, &ImageObservation{},
		&LayerData{}, &PointData{}, &ImageData{},
	}
}
