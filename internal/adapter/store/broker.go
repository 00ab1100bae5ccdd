package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
)

// Broker looks up dimension rows by natural key and creates them when
// missing. The first write wins: attributes of an existing row are never
// updated.
type Broker struct {
	db      *gorm.DB
	metrics *observability.Metrics

	// afterLookup runs between a missed lookup and the insert.
	afterLookup func(tx *gorm.DB, entity string)
}

// NewBroker creates a broker on db, usually a transaction.
func NewBroker(db *gorm.DB, metrics *observability.Metrics) *Broker {
	return &Broker{db: db, metrics: metrics}
}

func (b *Broker) withTx(tx *gorm.DB) *Broker {
	return &Broker{db: tx, metrics: b.metrics, afterLookup: b.afterLookup}
}

// getOrCreate returns the id of the T row matching key, inserting build()
// when there is none. A duplicate key on insert means another writer got
// there first, so the lookup is repeated once. The insert runs in a nested
// transaction so the savepoint keeps the outer one usable after a conflict.
func getOrCreate[T any](ctx context.Context, b *Broker, entity string, key map[string]any, build func() *T, id func(*T) uint) (uint, error) {
	lookup := func() (uint, bool, error) {
		var ids []uint
		err := b.db.WithContext(ctx).Model(new(T)).Where(key).Limit(1).Pluck("id", &ids).Error
		if err != nil {
			return 0, false, fmt.Errorf("lookup %s: %w", entity, err)
		}
		if len(ids) == 0 {
			return 0, false, nil
		}
		return ids[0], true, nil
	}

	found, ok, err := lookup()
	if err != nil {
		return 0, err
	}
	if ok {
		b.metrics.DimensionUpserts.WithLabelValues(entity, "hit").Inc()
		return found, nil
	}
	if b.afterLookup != nil {
		b.afterLookup(b.db, entity)
	}

	row := build()
	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	switch {
	case err == nil:
		b.metrics.DimensionUpserts.WithLabelValues(entity, "created").Inc()
		return id(row), nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		found, ok, lerr := lookup()
		if lerr != nil {
			return 0, lerr
		}
		if !ok {
			return 0, fmt.Errorf("create %s: %w and no row found on retry", entity, err)
		}
		b.metrics.DimensionUpserts.WithLabelValues(entity, "race").Inc()
		return found, nil
	default:
		return 0, fmt.Errorf("create %s: %w", entity, err)
	}
}

// optional returns nil for the zero id.
func optional(id uint, err error) (*uint, error) {
	if err != nil || id == 0 {
		return nil, err
	}
	return &id, nil
}

// Campaign returns the campaign id. An empty name yields 0.
func (b *Broker) Campaign(ctx context.Context, name string) (uint, error) {
	if name == "" {
		return 0, nil
	}
	return getOrCreate(ctx, b, "campaign", map[string]any{"name": name},
		func() *Campaign { return &Campaign{Name: name} },
		func(c *Campaign) uint { return c.ID })
}

func (b *Broker) Observer(ctx context.Context, name string) (uint, error) {
	if name == "" {
		return 0, nil
	}
	return getOrCreate(ctx, b, "observer", map[string]any{"name": name},
		func() *Observer { return &Observer{Name: name} },
		func(o *Observer) uint { return o.ID })
}

func (b *Broker) Instrument(ctx context.Context, key domain.InstrumentKey) (uint, error) {
	if key.IsZero() {
		return 0, nil
	}
	return getOrCreate(ctx, b, "instrument", map[string]any{"name": key.Name, "model": key.Model},
		func() *Instrument { return &Instrument{Name: key.Name, Model: key.Model} },
		func(i *Instrument) uint { return i.ID })
}

func (b *Broker) DOI(ctx context.Context, doi string, accessed time.Time) (uint, error) {
	if doi == "" {
		return 0, nil
	}
	return getOrCreate(ctx, b, "doi", map[string]any{"doi": doi},
		func() *DOI { return &DOI{DOI: doi, DateAccessed: accessed} },
		func(d *DOI) uint { return d.ID })
}

func (b *Broker) MeasurementType(ctx context.Context, key domain.MeasurementKey) (uint, error) {
	return getOrCreate(ctx, b, "measurement_type",
		map[string]any{"name": key.Name, "units": key.Units, "derived": key.Derived},
		func() *MeasurementType {
			return &MeasurementType{Name: key.Name, Units: key.Units, Derived: key.Derived}
		},
		func(m *MeasurementType) uint { return m.ID })
}

// Site returns the site id for (Name, Date). Its campaign, DOI and
// observers are resolved first and attached only when the site is new.
func (b *Broker) Site(ctx context.Context, rec domain.SiteRecord, accessed time.Time) (uint, error) {
	campaignID, err := optional(b.Campaign(ctx, rec.Campaign))
	if err != nil {
		return 0, err
	}
	doiID, err := optional(b.DOI(ctx, rec.DOI, accessed))
	if err != nil {
		return 0, err
	}
	observers := make([]Observer, 0, len(rec.Observers))
	for _, name := range rec.Observers {
		id, err := b.Observer(ctx, name)
		if err != nil {
			return 0, err
		}
		if id != 0 {
			observers = append(observers, Observer{ID: id, Name: name})
		}
	}

	date := dateOnly(rec.Date)
	return getOrCreate(ctx, b, "site", map[string]any{"name": rec.Name, "date": date},
		func() *Site { return siteModel(rec, date, campaignID, doiID, observers) },
		func(s *Site) uint { return s.ID })
}

func siteModel(rec domain.SiteRecord, date time.Time, campaignID, doiID *uint, observers []Observer) *Site {
	s := &Site{
		Name:        rec.Name,
		Date:        date,
		Description: rec.Description,
		SiteID:      rec.SiteID,
		CampaignID:  campaignID,
		DOIID:       doiID,
		Datetime:    rec.Datetime,
		Elevation:   rec.Elevation,
		Observers:   observers,

		Aspect:             rec.Details.Aspect,
		SlopeAngle:         rec.Details.SlopeAngle,
		AirTemp:            rec.Details.AirTemp,
		TotalDepth:         rec.Details.TotalDepth,
		WeatherDescription: rec.Details.WeatherDescription,
		Precip:             rec.Details.Precip,
		SkyCover:           rec.Details.SkyCover,
		Wind:               rec.Details.Wind,
		GroundCondition:    rec.Details.GroundCondition,
		GroundRoughness:    rec.Details.GroundRoughness,
		GroundVegetation:   rec.Details.GroundVegetation,
		VegetationHeight:   rec.Details.VegetationHeight,
		TreeCanopy:         rec.Details.TreeCanopy,
		SiteNotes:          rec.Details.SiteNotes,
	}
	if rec.Geom != nil {
		s.Geom = &Geometry{Point: *rec.Geom}
	}
	return s
}

// observationRefs are the resolved dimensions an observation points at.
type observationRefs struct {
	campaign    uint
	observer    *uint
	instrument  *uint
	measurement uint
	doi         *uint
}

func (b *Broker) observationRefs(ctx context.Context, obs domain.ObservationRecord, accessed time.Time) (observationRefs, error) {
	var refs observationRefs
	var err error
	if refs.observer, err = optional(b.Observer(ctx, obs.Observer)); err != nil {
		return refs, err
	}
	if refs.instrument, err = optional(b.Instrument(ctx, obs.Instrument)); err != nil {
		return refs, err
	}
	if refs.measurement, err = b.MeasurementType(ctx, obs.Measurement); err != nil {
		return refs, err
	}
	if refs.doi, err = optional(b.DOI(ctx, obs.DOI, accessed)); err != nil {
		return refs, err
	}
	if refs.campaign, err = b.Campaign(ctx, obs.Campaign); err != nil {
		return refs, err
	}
	if refs.campaign == 0 {
		return refs, fmt.Errorf("observation %s has no campaign", obs.Name)
	}
	return refs, nil
}

// PointObservation returns the point observation id for (Name, Date).
func (b *Broker) PointObservation(ctx context.Context, obs domain.ObservationRecord, accessed time.Time) (uint, error) {
	refs, err := b.observationRefs(ctx, obs, accessed)
	if err != nil {
		return 0, err
	}
	date := dateOnly(obs.Date)
	return getOrCreate(ctx, b, "point_observation", map[string]any{"name": obs.Name, "date": date},
		func() *PointObservation {
			return &PointObservation{
				Name: obs.Name, Date: date, Description: obs.Description,
				CampaignID: refs.campaign, ObserverID: refs.observer, InstrumentID: refs.instrument,
				MeasurementTypeID: refs.measurement, DOIID: refs.doi,
			}
		},
		func(p *PointObservation) uint { return p.ID })
}

// ImageObservation returns the image observation id for (Name, Date).
func (b *Broker) ImageObservation(ctx context.Context, obs domain.ObservationRecord, accessed time.Time) (uint, error) {
	refs, err := b.observationRefs(ctx, obs, accessed)
	if err != nil {
		return 0, err
	}
	date := dateOnly(obs.Date)
	return getOrCreate(ctx, b, "image_observation", map[string]any{"name": obs.Name, "date": date},
		func() *ImageObservation {
			return &ImageObservation{
				Name: obs.Name, Date: date, Description: obs.Description,
				CampaignID: refs.campaign, ObserverID: refs.observer, InstrumentID: refs.instrument,
				MeasurementTypeID: refs.measurement, DOIID: refs.doi,
			}
		},
		func(i *ImageObservation) uint { return i.ID })
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
