package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
)

// measurementTools expands the short instrument codes of depth files.
var measurementTools = map[string]string{
	"mp": "magnaprobe",
	"m2": "mesa",
	"pr": "pit ruler",
}

// pointUnits are the units of point variables when nothing else says.
var pointUnits = map[string]string{
	"depth":          "cm",
	"two_way_travel": "ns",
	"swe":            "mm",
	"density":        "kg/m^3",
}

// defaultObserver is recorded when no observer is named.
const defaultObserver = "unknown"

// PointUploader loads point and time series files.
type PointUploader struct {
	store   Store
	tz      TimezoneLocator
	vocab   *domain.Vocabulary
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPointUploader creates a PointUploader. The locator is only needed for
// row based timezones and may be nil otherwise.
func NewPointUploader(store Store, tz TimezoneLocator, vocab *domain.Vocabulary, logger *slog.Logger, metrics *observability.Metrics) *PointUploader {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	return &PointUploader{store: store, tz: tz, vocab: vocab, logger: logger, metrics: metrics}
}

// pointRow is one body row after coordinate and time reconciliation.
type pointRow struct {
	rec      map[string]string
	date     time.Time
	datetime *time.Time
	geom     domain.Point
	elev     *float64
	group    groupKey
	campaign string
	doi      string
	observer string
}

// groupKey identifies one observation within a point file.
type groupKey struct {
	instrument string
	model      string
	name       string
	date       time.Time
	pitID      string
}

func (k groupKey) observationName(variable string) string {
	var parts []string
	for _, p := range []string{k.name, k.pitID, k.instrument, k.model, variable} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// Upload parses a point file and submits one batch per observation group
// and variable.
func (u *PointUploader) Upload(ctx context.Context, path string, opts domain.Options) (Result, error) {
	start := time.Now()
	defer func() {
		u.metrics.UploadDuration.WithLabelValues("point").Observe(time.Since(start).Seconds())
	}()

	batches, hdr, err := u.Build(ctx, path, opts)
	if err != nil {
		return Result{File: path}, err
	}
	res := Result{File: path, Variables: hdr.DataNames}
	for _, b := range batches {
		n, err := u.store.SubmitPoints(ctx, b)
		if err != nil {
			return res, domain.WithFile(err, path)
		}
		res.Rows += n
		u.logger.Debug("points submitted", "file", path, "observation", b.Observation.Name, "rows", n)
	}
	if len(batches) == 0 {
		u.logger.Warn("file contains no point values", "file", path)
	}
	return res, nil
}

// Build parses the file into point batches without storing anything.
func (u *PointUploader) Build(ctx context.Context, path string, opts domain.Options) ([]domain.PointBatch, *domain.Header, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, domain.WithFile(err, path)
	}
	if opts.RowBasedTimezone && u.tz == nil {
		return nil, nil, domain.WithFile(domain.Errorf(domain.KindConfig, "row based timezone needs a timezone locator"), path)
	}

	lines, err := domain.ReadLines(path)
	if err != nil {
		return nil, nil, domain.WithFile(err, path)
	}
	if len(lines) == 0 {
		return nil, nil, domain.WithFile(domain.Errorf(domain.KindParse, "file is empty"), path)
	}

	hdr, err := domain.ParseHeader(lines, domain.PointFile, opts, u.vocab)
	if err != nil {
		return nil, nil, domain.WithFile(err, path)
	}
	for _, w := range hdr.Warnings {
		u.logger.Warn("header conflict", "file", path, "detail", w)
	}

	table, err := domain.ReadTable(lines[hdr.HeaderPos+1:], hdr.Columns)
	if err != nil {
		return nil, nil, domain.WithFile(domain.Errorf(domain.KindParse, "failed reading file: %w", err), path)
	}
	table.Drop(hdr.Ignored...)

	rows := make([]pointRow, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		r, err := u.reconcileRow(ctx, table.Record(i), hdr.Info, opts)
		if err != nil {
			return nil, nil, domain.WithFile(domain.NewError(domain.KindOf(err), fmt.Errorf("row %d: %w", i+1, err)), path)
		}
		rows = append(rows, r)
	}

	batches, err := u.group(rows, hdr, opts, domain.DateAccessed(path))
	if err != nil {
		return nil, nil, domain.WithFile(err, path)
	}
	return batches, hdr, nil
}

// rowValue reads a metadata field from the row, falling back to the header.
func rowValue(rec map[string]string, info domain.Info, key string) string {
	if v, ok := rec[key]; ok && !domain.IsMissing(v) {
		return strings.TrimSpace(v)
	}
	return infoString(info, key)
}

var rowTimeKeys = []string{domain.KeyDate, domain.KeyTime, domain.KeyDateTime, "utcyear", "utcdoy", "utctod"}

func isTimeKey(k string) bool {
	return slices.Contains(rowTimeKeys, k) || (strings.Contains(k, "date") && strings.Contains(k, "time"))
}

func (u *PointUploader) reconcileRow(ctx context.Context, rec map[string]string, info domain.Info, opts domain.Options) (pointRow, error) {
	opts = opts.WithDefaults()
	r := pointRow{rec: rec}

	// Coordinates come from the row when it has any, else from the header.
	coords := map[string]any{}
	for _, k := range []string{domain.KeyLatitude, domain.KeyLongitude, domain.KeyEasting, domain.KeyNorthing} {
		if v := rowValue(rec, nil, k); v != "" {
			coords[k] = v
		}
	}
	if len(coords) == 0 {
		// Projected header coordinates stay exact when a zone is known.
		keys := []string{domain.KeyLatitude, domain.KeyLongitude}
		if _, ok := info.Float(domain.KeyEasting); ok && info[domain.KeyUTMZone] != nil {
			keys = []string{domain.KeyEasting, domain.KeyNorthing}
		}
		for _, k := range keys {
			if v, ok := info[k]; ok && v != nil {
				coords[k] = v
			}
		}
	}
	if v := rowValue(rec, nil, domain.KeyUTMZone); v != "" {
		coords[domain.KeyUTMZone] = v
	} else if info[domain.KeyUTMZone] != nil {
		coords[domain.KeyUTMZone] = info[domain.KeyUTMZone]
	}
	projected, err := domain.ReprojectPoint(coords, opts.Northern(), opts.UTMZone)
	if err != nil {
		return r, err
	}
	pc := domain.Info(projected)

	epsg := opts.EPSG
	if epsg == 0 && !opts.RowBasedCRS {
		epsg, _ = info.Int(domain.KeyEPSG)
	}
	if epsg == 0 {
		epsg, _ = pc.Int(domain.KeyEPSG)
	}
	if epsg == 0 {
		return r, domain.NewError(domain.KindValidation, domain.ErrNoEPSG)
	}
	e, okE := pc.Float(domain.KeyEasting)
	n, okN := pc.Float(domain.KeyNorthing)
	if !okE || !okN {
		return r, domain.NewError(domain.KindValidation, domain.ErrNoGeoInfo)
	}
	r.geom = domain.Point{X: e, Y: n, SRID: epsg}

	if v := rowValue(rec, info, "elevation"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.elev = &f
		}
	}

	// Date and time.
	times := map[string]any{}
	for k, v := range rec {
		if isTimeKey(k) {
			times[k] = v
		}
	}
	if len(times) == 0 && opts.RowBasedTimezone {
		// The header date is left raw in this mode and is localized at the row.
		for k, v := range info {
			if isTimeKey(k) && v != nil {
				times[k] = v
			}
		}
	}
	if len(times) == 0 {
		if d, ok := info.Time(domain.KeyDate); ok {
			r.date = d
		}
		if dt, ok := info.Time(domain.KeyDateTime); ok {
			r.datetime = &dt
		}
	} else {
		tz := opts.Timezone
		if opts.RowBasedTimezone {
			lat, _ := pc.Float(domain.KeyLatitude)
			lon, _ := pc.Float(domain.KeyLongitude)
			tz, err = u.tz.TimezoneAt(ctx, lat, lon)
			if err != nil {
				return r, domain.Errorf(domain.KindConfig, "timezone at %v, %v: %w", lat, lon, err)
			}
		}
		dated, err := domain.AddDateTimeKeys(times, tz, opts.OutTimezone)
		if err != nil {
			return r, err
		}
		di := domain.Info(dated)
		if d, ok := di.Time(domain.KeyDate); ok {
			r.date = d
		}
		if dt, ok := di.Time(domain.KeyDateTime); ok {
			r.datetime = &dt
		}
	}
	if r.date.IsZero() {
		return r, domain.Errorf(domain.KindValidation, "no date for point")
	}

	instrument := firstNonEmpty(opts.Instrument, rowValue(rec, info, "instrument"))
	if tool, ok := measurementTools[strings.ToLower(instrument)]; ok {
		instrument = tool
	}
	r.group = groupKey{
		instrument: instrument,
		model:      firstNonEmpty(opts.InstrumentModel, rowValue(rec, info, "instrument_model")),
		name:       firstNonEmpty(opts.Name, rowValue(rec, info, "name")),
		date:       r.date,
		pitID:      rowValue(rec, info, "pit_id"),
	}
	r.campaign = firstNonEmpty(opts.CampaignName, rowValue(rec, info, "campaign"), infoString(info, "site_name"))
	r.doi = firstNonEmpty(opts.DOI, rowValue(rec, info, "doi"))
	r.observer = firstNonEmpty(opts.Observers, rowValue(rec, info, "observers"), defaultObserver)
	return r, nil
}

// group splits rows into observation batches. Each group must agree on its
// campaign, DOI and observer.
func (u *PointUploader) group(rows []pointRow, hdr *domain.Header, opts domain.Options, accessed time.Time) ([]domain.PointBatch, error) {
	opts = opts.WithDefaults()
	var order []groupKey
	members := map[groupKey][]pointRow{}
	for _, r := range rows {
		if _, seen := members[r.group]; !seen {
			order = append(order, r.group)
		}
		members[r.group] = append(members[r.group], r)
	}

	var batches []domain.PointBatch
	for _, key := range order {
		group := members[key]
		first := group[0]
		for _, r := range group[1:] {
			for _, f := range []struct{ field, a, b string }{
				{"campaign", first.campaign, r.campaign},
				{"doi", first.doi, r.doi},
				{"observer", first.observer, r.observer},
			} {
				if f.a != f.b {
					return nil, domain.Errorf(domain.KindValidation,
						"observation %s on %s has more than one %s: %q and %q",
						key.observationName(""), key.date.Format(time.DateOnly), f.field, f.a, f.b)
				}
			}
		}
		if first.campaign == "" {
			return nil, domain.NewError(domain.KindValidation, errNoCampaign)
		}

		for _, code := range hdr.DataNames {
			v, _ := u.vocab.Variable(code)
			obs := domain.ObservationRecord{
				Name:     key.observationName(code),
				Date:     key.date,
				Campaign: first.campaign,
				DOI:      first.doi,
				Observer: first.observer,
				Instrument: domain.InstrumentKey{
					Name:  key.instrument,
					Model: key.model,
				},
				Measurement: domain.MeasurementKey{
					Name:    code,
					Units:   firstNonEmpty(opts.Units[code], hdr.Units[code], pointUnits[code], v.Units),
					Derived: opts.Derived || v.Derived,
				},
				Description: opts.Comments,
			}

			batch := domain.PointBatch{Observation: obs, DateAccessed: accessed}
			skipped := 0
			for _, r := range group {
				raw := r.rec[code]
				if domain.IsMissing(raw) {
					skipped++
					continue
				}
				val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
				if err != nil {
					return nil, domain.Errorf(domain.KindParse, "%s value %q is not numeric", code, raw)
				}
				flags, err := cleanFlags(r.rec["flags"], opts.FlagsMaxLength)
				if err != nil {
					return nil, err
				}
				comments := strings.TrimSpace(r.rec["comments"])
				if domain.IsMissing(comments) {
					comments = ""
				}
				if cam := strings.TrimSpace(r.rec["camera"]); cam != "" && !domain.IsMissing(cam) {
					if comments != "" {
						comments += "; "
					}
					comments += "camera id = " + cam
				}
				batch.Rows = append(batch.Rows, domain.PointRow{
					Datetime:  r.datetime,
					Date:      r.date,
					Elevation: r.elev,
					Geom:      r.geom,
					Value:     val,
					Comments:  joinComments(comments, flags),
					Flags:     flags,
				})
			}
			if skipped > 0 {
				u.logger.Debug("skipped rows without a value", "variable", code, "observation", obs.Name, "rows", skipped)
			}
			if len(batch.Rows) > 0 {
				batches = append(batches, batch)
			}
		}
	}
	return batches, nil
}
