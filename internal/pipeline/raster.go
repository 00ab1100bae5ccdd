package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
)

// RasterOptions describes one raster upload.
type RasterOptions struct {
	Type domain.RasterType
	// Date is required for single-file products. SAR products take
	// theirs from the annotation.
	Date time.Time
	// AnnotationFile is the flight annotation of a SAR product.
	AnnotationFile string
	// Component is "real" or "imaginary" for interferograms.
	Component string

	EPSG            int
	CampaignName    string
	Name            string
	DOI             string
	Observers       string
	Instrument      string
	InstrumentModel string
	Comments        string
	Derived         bool
}

// RasterUploader persists raster products and records them as image
// observations.
type RasterUploader struct {
	store     Store
	persister RasterPersister
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRasterUploader creates a RasterUploader.
func NewRasterUploader(store Store, persister RasterPersister, logger *slog.Logger, metrics *observability.Metrics) *RasterUploader {
	return &RasterUploader{store: store, persister: persister, logger: logger, metrics: metrics}
}

// Metadata resolves the type, date, units and comments of a raster.
func (u *RasterUploader) Metadata(opts RasterOptions) (domain.RasterMetadata, error) {
	if !opts.Type.IsSAR() {
		return domain.MetadataFromSingleFile(opts.Type, opts.Date)
	}
	if opts.AnnotationFile == "" {
		return domain.RasterMetadata{}, domain.Errorf(domain.KindConfig, "%s raster needs an annotation file", opts.Type)
	}
	lines, err := domain.ReadLines(opts.AnnotationFile)
	if err != nil {
		return domain.RasterMetadata{}, domain.WithFile(err, opts.AnnotationFile)
	}
	ann, err := domain.ParseAnnotation(lines)
	if err != nil {
		return domain.RasterMetadata{}, domain.WithFile(err, opts.AnnotationFile)
	}
	return domain.MetadataFromAnnotation(ann, opts.Type, opts.Component)
}

// Upload persists one raster and submits its image observation.
func (u *RasterUploader) Upload(ctx context.Context, path string, opts RasterOptions) (Result, error) {
	start := time.Now()
	defer func() {
		u.metrics.UploadDuration.WithLabelValues("raster").Observe(time.Since(start).Seconds())
	}()

	if opts.EPSG == 0 {
		return Result{File: path}, domain.WithFile(domain.Errorf(domain.KindConfig, "raster upload needs an epsg code"), path)
	}
	if opts.CampaignName == "" {
		return Result{File: path}, domain.WithFile(domain.NewError(domain.KindValidation, errNoCampaign), path)
	}

	meta, err := u.Metadata(opts)
	if err != nil {
		return Result{File: path}, domain.WithFile(err, path)
	}

	persisted, err := u.persister.Persist(ctx, path, opts.EPSG)
	if err != nil {
		return Result{File: path}, domain.WithFile(domain.NewError(domain.KindStorage, err), path)
	}

	comments := meta.Comments
	switch {
	case opts.Comments != "" && comments != "":
		comments = opts.Comments + ", " + comments
	case opts.Comments != "":
		comments = opts.Comments
	}
	img := domain.ImageRecord{
		Observation: domain.ObservationRecord{
			Name:        firstNonEmpty(opts.Name, meta.Name),
			Date:        meta.Date,
			Description: comments,
			Campaign:    opts.CampaignName,
			DOI:         opts.DOI,
			Observer:    firstNonEmpty(opts.Observers, defaultObserver),
			Instrument:  domain.InstrumentKey{Name: opts.Instrument, Model: opts.InstrumentModel},
			Measurement: domain.MeasurementKey{Name: meta.Name, Units: meta.Units, Derived: opts.Derived},
		},
		Type:         meta.Type,
		Handle:       persisted.Handle,
		EPSG:         opts.EPSG,
		Tiles:        persisted.Tiles,
		DateAccessed: domain.DateAccessed(path),
	}
	if err := u.store.SubmitImage(ctx, img, persisted.TileSQL); err != nil {
		return Result{File: path}, domain.WithFile(err, path)
	}
	u.logger.Info("raster submitted",
		"file", path,
		"type", meta.Type.String(),
		"handle", persisted.Handle,
		"tiles", persisted.Tiles,
	)
	return Result{File: path, Rows: 1, Variables: []string{meta.Name}}, nil
}
