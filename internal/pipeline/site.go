package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
)

// SiteUploader loads site details files, where the whole file is a header.
type SiteUploader struct {
	store   Store
	vocab   *domain.Vocabulary
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSiteUploader creates a SiteUploader.
func NewSiteUploader(store Store, vocab *domain.Vocabulary, logger *slog.Logger, metrics *observability.Metrics) *SiteUploader {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	return &SiteUploader{store: store, vocab: vocab, logger: logger, metrics: metrics}
}

// Parse reads a site details file into its interpreted header.
func (u *SiteUploader) Parse(path string, opts domain.Options) (*domain.Header, error) {
	if err := opts.Validate(); err != nil {
		return nil, domain.WithFile(err, path)
	}
	lines, err := domain.ReadLines(path)
	if err != nil {
		return nil, domain.WithFile(err, path)
	}
	if len(lines) == 0 {
		return nil, domain.WithFile(domain.Errorf(domain.KindParse, "file is empty"), path)
	}
	hdr, err := domain.ParseHeader(lines, domain.SiteDetailsFile, opts, u.vocab)
	if err != nil {
		return nil, domain.WithFile(err, path)
	}
	for _, w := range hdr.Warnings {
		u.logger.Warn("header conflict", "file", path, "detail", w)
	}
	return hdr, nil
}

// Upload upserts the site a details file describes.
func (u *SiteUploader) Upload(ctx context.Context, path string, opts domain.Options) (Result, error) {
	start := time.Now()
	defer func() {
		u.metrics.UploadDuration.WithLabelValues("site").Observe(time.Since(start).Seconds())
	}()

	hdr, err := u.Parse(path, opts)
	if err != nil {
		return Result{File: path}, err
	}
	site, err := siteFromInfo(hdr.Info, opts)
	if err != nil {
		return Result{File: path}, domain.WithFile(err, path)
	}
	if err := u.store.SubmitSite(ctx, site, domain.DateAccessed(path)); err != nil {
		return Result{File: path}, domain.WithFile(err, path)
	}
	u.logger.Info("site submitted", "file", path, "site", site.Name, "date", site.Date.Format(time.DateOnly))
	return Result{File: path}, nil
}
