package pipeline

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
)

// Result summarizes one uploaded file.
type Result struct {
	File      string
	Rows      int
	Variables []string
}

// Profile is a parsed vertical profile ready to be split into layer batches.
type Profile struct {
	File         string
	Header       *domain.Header
	Table        *domain.Table
	Site         domain.SiteRecord
	Instrument   domain.InstrumentKey
	IsSMP        bool
	DateAccessed time.Time
}

// ProfileUploader loads snow pit and penetrometer profiles.
type ProfileUploader struct {
	store   Store
	vocab   *domain.Vocabulary
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewProfileUploader creates a ProfileUploader. A nil vocabulary uses the built-in one.
func NewProfileUploader(store Store, vocab *domain.Vocabulary, logger *slog.Logger, metrics *observability.Metrics) *ProfileUploader {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	return &ProfileUploader{store: store, vocab: vocab, logger: logger, metrics: metrics}
}

// Upload parses a profile file and submits one layer batch per variable.
// Every batch is built before the first is submitted, so a validation
// failure leaves nothing behind.
func (u *ProfileUploader) Upload(ctx context.Context, path string, opts domain.Options) (Result, error) {
	start := time.Now()
	defer func() {
		u.metrics.UploadDuration.WithLabelValues("profile").Observe(time.Since(start).Seconds())
	}()

	p, err := u.Parse(path, opts)
	if err != nil {
		return Result{File: path}, err
	}
	res, err := u.Submit(ctx, p, opts)
	return res, domain.WithFile(err, path)
}

// Parse reads the header and body of a profile and standardizes its depths.
func (u *ProfileUploader) Parse(path string, opts domain.Options) (*Profile, error) {
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

	hdr, err := domain.ParseHeader(lines, domain.ProfileFile, opts, u.vocab)
	if err != nil {
		return nil, domain.WithFile(err, path)
	}
	for _, w := range hdr.Warnings {
		u.logger.Warn("header conflict", "file", path, "detail", w)
	}

	table, err := domain.ReadTable(lines[hdr.HeaderPos+1:], hdr.Columns)
	if err != nil {
		return nil, domain.WithFile(domain.Errorf(domain.KindParse, "failed reading file: %w", err), path)
	}
	table.Drop(hdr.Ignored...)

	p := &Profile{
		File:         path,
		Header:       hdr,
		Table:        table,
		IsSMP:        table.Has("force"),
		DateAccessed: domain.DateAccessed(path),
	}

	if err := p.standardizeDepths(opts, u.logger); err != nil {
		return nil, domain.WithFile(err, path)
	}
	if p.IsSMP {
		table.AddColumn("comments", "")
		for i := range table.Rows {
			table.Set(i, "comments", smpComment(path))
		}
	}

	site, err := siteFromInfo(hdr.Info, opts)
	if err != nil {
		return nil, domain.WithFile(err, path)
	}
	p.Site = site
	p.Instrument = domain.InstrumentKey{
		Name:  firstNonEmpty(opts.Instrument, infoString(hdr.Info, "instrument")),
		Model: firstNonEmpty(opts.InstrumentModel, infoString(hdr.Info, "instrument_model")),
	}
	return p, nil
}

// smpComment records the original file and the penetrometer serial number.
// The serial is the two characters after the leading "S" of the file name,
// optionally prefixed with "SMP_".
func smpComment(path string) string {
	name := filepath.Base(path)
	rest := name
	if _, after, ok := strings.Cut(name, "SMP_"); ok {
		rest = after
	}
	serial := ""
	if len(rest) >= 3 {
		serial = rest[1:3]
	}
	return "fname = " + name + ", serial no. = " + serial
}

func (p *Profile) standardizeDepths(opts domain.Options, logger *slog.Logger) error {
	if p.Table.Len() == 0 || !p.Table.Has("depth") {
		return nil
	}

	desired := opts.DepthFormat
	if desired == "" {
		desired = domain.SnowHeight
		if p.IsSMP {
			desired = domain.SurfaceDatum
		}
	}

	depth, err := p.Table.Floats("depth")
	if err != nil {
		return err
	}
	if p.IsSMP {
		for i := range depth {
			depth[i] /= 10
		}
	}

	if p.Table.Has("bottom_depth") {
		bottom, err := p.Table.Floats("bottom_depth")
		if err != nil {
			return err
		}
		nd, nb, err := domain.StandardizeLayers(depth, bottom, desired, p.IsSMP)
		if err != nil {
			return err
		}
		p.Table.SetFloats("depth", nd)
		p.Table.SetFloats("bottom_depth", nb)
		depth = nd
	} else {
		depth = domain.StandardizeDepth(depth, desired, p.IsSMP)
		p.Table.SetFloats("depth", depth)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range depth {
		if !math.IsNaN(d) {
			lo, hi = math.Min(lo, d), math.Max(hi, d)
		}
	}
	logger.Info("profile read",
		"file", p.File,
		"variables", len(p.Header.DataNames),
		"layers", p.Table.Len(),
		"span_cm", math.Abs(hi-lo),
	)
	return nil
}

// Batches builds one layer batch per variable. Rows without a value or
// depth are skipped.
func (p *Profile) Batches(opts domain.Options, vocab *domain.Vocabulary) ([]domain.LayerBatch, error) {
	opts = opts.WithDefaults()
	batches := make([]domain.LayerBatch, 0, len(p.Header.DataNames))

	for _, code := range p.Header.DataNames {
		multi := slices.Contains(p.Header.MultiSampleNames, code)
		var sampleCols []string
		if multi {
			for _, c := range p.Table.Columns {
				if strings.HasPrefix(c, code+"_sample_") {
					sampleCols = append(sampleCols, c)
				}
			}
		}

		v, _ := vocab.Variable(code)
		batch := domain.LayerBatch{
			Site: p.Site,
			Measurement: domain.MeasurementKey{
				Name:    code,
				Units:   firstNonEmpty(opts.Units[code], p.Header.Units[code], v.Units),
				Derived: opts.Derived || v.Derived,
			},
			Instrument:   p.Instrument,
			DOI:          p.Site.DOI,
			DateAccessed: p.DateAccessed,
		}

		for i := 0; i < p.Table.Len(); i++ {
			rec := p.Table.Record(i)

			depth, err := strconv.ParseFloat(rec["depth"], 64)
			if err != nil {
				continue
			}

			var value string
			if multi {
				avg, ok := domain.AvgFromMultiSample(rec, code)
				if !ok {
					continue
				}
				value = strconv.FormatFloat(avg, 'f', -1, 64)
			} else {
				value = strings.TrimSpace(rec[code])
			}
			if domain.IsMissing(value) {
				continue
			}

			row := domain.LayerRow{Depth: depth, Value: value}
			if b, err := strconv.ParseFloat(rec["bottom_depth"], 64); err == nil {
				row.BottomDepth = &b
			}
			for _, c := range sampleCols {
				row.Samples = append(row.Samples, rec[c])
			}

			flags, err := cleanFlags(rec["flags"], opts.FlagsMaxLength)
			if err != nil {
				return nil, err
			}
			row.Flags = flags
			row.Comments = joinComments(firstNonEmpty(rec["comments"], opts.Comments), flags)
			batch.Rows = append(batch.Rows, row)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// Check verifies the profile header against a site details header.
func (p *Profile) Check(site domain.Info) error {
	return domain.WithFile(p.Header.VerifySite(site), p.File)
}

// Submit stores every batch in order. An empty body still upserts the site.
func (u *ProfileUploader) Submit(ctx context.Context, p *Profile, opts domain.Options) (Result, error) {
	res := Result{File: p.File, Variables: p.Header.DataNames}

	if p.Table.Len() == 0 {
		u.logger.Warn("file contains header but no data, submitting site only", "file", p.File)
		return res, u.store.SubmitSite(ctx, p.Site, p.DateAccessed)
	}

	batches, err := p.Batches(opts, u.vocab)
	if err != nil {
		return res, err
	}
	for _, b := range batches {
		if len(b.Rows) == 0 {
			u.logger.Warn("no values for variable", "file", p.File, "variable", b.Measurement.Name)
			continue
		}
		n, err := u.store.SubmitLayers(ctx, b)
		if err != nil {
			return res, err
		}
		res.Rows += n
		u.logger.Debug("layers submitted", "file", p.File, "variable", b.Measurement.Name, "rows", n)
	}
	if res.Rows == 0 {
		return res, u.store.SubmitSite(ctx, p.Site, p.DateAccessed)
	}
	return res, nil
}
