package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
)

// Store persists normalized records, upserting the dimensions each one
// references. Each submit call is one transaction.
type Store interface {
	SubmitSite(ctx context.Context, site domain.SiteRecord, accessed time.Time) error
	SubmitLayers(ctx context.Context, batch domain.LayerBatch) (int, error)
	SubmitPoints(ctx context.Context, batch domain.PointBatch) (int, error)
	SubmitImage(ctx context.Context, image domain.ImageRecord, tileSQL string) error
}

// TimezoneLocator names the IANA timezone containing a point.
type TimezoneLocator interface {
	TimezoneAt(ctx context.Context, lat, lon float64) (string, error)
}

// PersistedRaster is what the raster boundary returns for one file.
type PersistedRaster struct {
	// Handle is a local path or a /vsis3/ URI readable by the database.
	Handle string
	// TileSQL is the serialized tile insert payload, empty when not tiled.
	TileSQL string
	Tiles   int
}

// RasterPersister stores a raster file and prepares it for ingestion.
type RasterPersister interface {
	Persist(ctx context.Context, path string, epsg int) (PersistedRaster, error)
}

// Publisher emits upload outcome events.
type Publisher interface {
	Publish(ctx context.Context, event UploadEvent) error
}
