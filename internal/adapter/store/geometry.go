package store

import (
	"context"
	"database/sql/driver"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
)

// Geometry is a point column. PostGIS stores it as geometry, SQLite as
// EWKT text.
type Geometry struct {
	domain.Point
}

// GormDBDataType picks the column type per dialect.
func (Geometry) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "geometry"
	}
	return "text"
}

// GormValue writes the point as EWKT, parsed server-side on PostGIS.
func (g Geometry) GormValue(_ context.Context, db *gorm.DB) clause.Expr {
	if db.Dialector.Name() == "postgres" {
		return clause.Expr{SQL: "ST_GeomFromEWKT(?)", Vars: []any{g.EWKT()}}
	}
	return clause.Expr{SQL: "?", Vars: []any{g.EWKT()}}
}

// Value is the EWKT text. Writes through gorm use GormValue instead.
func (g Geometry) Value() (driver.Value, error) {
	return g.EWKT(), nil
}

// Scan reads an EWKT value. Only the text representation is supported.
func (g *Geometry) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case nil:
		*g = Geometry{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan geometry: unsupported type %T", value)
	}
	var p domain.Point
	if _, err := fmt.Sscanf(s, "SRID=%d;POINT(%g %g)", &p.SRID, &p.X, &p.Y); err != nil {
		return fmt.Errorf("scan geometry %q: %w", s, err)
	}
	g.Point = p
	return nil
}
