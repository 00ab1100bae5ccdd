package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
)

const insertBatchSize = 500

// Store implements pipeline.Store. Each submit runs in its own transaction.
type Store struct {
	db      *gorm.DB
	broker  *Broker
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Store on an open, migrated database.
func New(db *gorm.DB, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{db: db, broker: NewBroker(db, metrics), logger: logger, metrics: metrics}
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return Ping(ctx, s.db)
}

func (s *Store) tx(ctx context.Context, fn func(tx *gorm.DB, br *Broker) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, s.broker.withTx(tx))
	})
	if err != nil {
		return domain.NewError(domain.KindStorage, err)
	}
	return nil
}

// SubmitSite upserts the site and its dimensions. accessed is the date the
// source file was obtained.
func (s *Store) SubmitSite(ctx context.Context, site domain.SiteRecord, accessed time.Time) error {
	return s.tx(ctx, func(_ *gorm.DB, br *Broker) error {
		_, err := br.Site(ctx, site, accessed)
		return err
	})
}

// SubmitLayers inserts every row of one profile variable.
func (s *Store) SubmitLayers(ctx context.Context, batch domain.LayerBatch) (int, error) {
	var rows []LayerData
	err := s.tx(ctx, func(tx *gorm.DB, br *Broker) error {
		siteID, err := br.Site(ctx, batch.Site, batch.DateAccessed)
		if err != nil {
			return err
		}
		mtID, err := br.MeasurementType(ctx, batch.Measurement)
		if err != nil {
			return err
		}
		instID, err := optional(br.Instrument(ctx, batch.Instrument))
		if err != nil {
			return err
		}
		doiID, err := optional(br.DOI(ctx, batch.DOI, batch.DateAccessed))
		if err != nil {
			return err
		}

		rows = make([]LayerData, 0, len(batch.Rows))
		for _, r := range batch.Rows {
			a, b, c := samples(r.Samples)
			rows = append(rows, LayerData{
				SiteID:            siteID,
				MeasurementTypeID: mtID,
				InstrumentID:      instID,
				DOIID:             doiID,
				Depth:             r.Depth,
				BottomDepth:       r.BottomDepth,
				Value:             r.Value,
				SampleA:           a,
				SampleB:           b,
				SampleC:           c,
				Comments:          r.Comments,
				Flags:             r.Flags,
				DateAccessed:      batch.DateAccessed,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert layer_data: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.RowsInserted.WithLabelValues("layer_data").Add(float64(len(rows)))
	s.logger.Debug("layers inserted", "site", batch.Site.Name, "type", batch.Measurement.Name, "rows", len(rows))
	return len(rows), nil
}

func samples(vals []string) (a, b, c *string) {
	out := make([]*string, 3)
	for i := 0; i < len(vals) && i < 3; i++ {
		if vals[i] != "" {
			v := vals[i]
			out[i] = &v
		}
	}
	return out[0], out[1], out[2]
}

// SubmitPoints inserts every row of one point observation.
func (s *Store) SubmitPoints(ctx context.Context, batch domain.PointBatch) (int, error) {
	var rows []PointData
	err := s.tx(ctx, func(tx *gorm.DB, br *Broker) error {
		obsID, err := br.PointObservation(ctx, batch.Observation, batch.DateAccessed)
		if err != nil {
			return err
		}
		rows = make([]PointData, 0, len(batch.Rows))
		for _, r := range batch.Rows {
			rows = append(rows, PointData{
				ObservationID: obsID,
				Datetime:      r.Datetime,
				Date:          dateOnly(r.Date),
				Elevation:     r.Elevation,
				Geom:          Geometry{Point: r.Geom},
				Value:         r.Value,
				Comments:      r.Comments,
				Flags:         r.Flags,
				DateAccessed:  batch.DateAccessed,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert point_data: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.RowsInserted.WithLabelValues("point_data").Add(float64(len(rows)))
	s.logger.Debug("points inserted", "observation", batch.Observation.Name, "rows", len(rows))
	return len(rows), nil
}

// SubmitImage records one raster. tileSQL, when set, is executed on
// PostgreSQL in the same transaction.
func (s *Store) SubmitImage(ctx context.Context, image domain.ImageRecord, tileSQL string) error {
	err := s.tx(ctx, func(tx *gorm.DB, br *Broker) error {
		obsID, err := br.ImageObservation(ctx, image.Observation, image.DateAccessed)
		if err != nil {
			return err
		}
		row := ImageData{
			ObservationID: obsID,
			Type:          image.Type.Code,
			Handle:        image.Handle,
			EPSG:          image.EPSG,
			Tiles:         image.Tiles,
			DateAccessed:  image.DateAccessed,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert image_data: %w", err)
		}

		if tileSQL == "" {
			return nil
		}
		if tx.Dialector.Name() != "postgres" {
			s.logger.Warn("skipping raster tiles, database has no raster support", "handle", image.Handle)
			return nil
		}
		if err := tx.Exec(tileStatements(tileSQL)).Error; err != nil {
			return fmt.Errorf("insert tiles: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RowsInserted.WithLabelValues("image_data").Inc()
	return nil
}

// tileStatements drops the transaction control raster2pgsql wraps its
// output in, since the inserts run inside our own transaction.
func tileStatements(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, l := range lines {
		switch strings.ToUpper(strings.TrimSpace(l)) {
		case "BEGIN;", "END;", "COMMIT;":
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
