package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

// --- mocks ---

type mockStore struct {
	mu           sync.Mutex
	sites        []domain.SiteRecord
	siteAccessed []time.Time
	layers       []domain.LayerBatch
	points       []domain.PointBatch
	images       []domain.ImageRecord
	tileSQL      []string
	err          error
}

func (m *mockStore) SubmitSite(_ context.Context, site domain.SiteRecord, accessed time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sites = append(m.sites, site)
	m.siteAccessed = append(m.siteAccessed, accessed)
	return nil
}

func (m *mockStore) SubmitLayers(_ context.Context, batch domain.LayerBatch) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.layers = append(m.layers, batch)
	return len(batch.Rows), nil
}

func (m *mockStore) SubmitPoints(_ context.Context, batch domain.PointBatch) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.points = append(m.points, batch)
	return len(batch.Rows), nil
}

func (m *mockStore) SubmitImage(_ context.Context, image domain.ImageRecord, tileSQL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.images = append(m.images, image)
	m.tileSQL = append(m.tileSQL, tileSQL)
	return nil
}

func (m *mockStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sites) + len(m.layers) + len(m.points) + len(m.images)
}

type mockLocator struct {
	tz    string
	err   error
	calls int
}

func (m *mockLocator) TimezoneAt(_ context.Context, _, _ float64) (string, error) {
	m.calls++
	return m.tz, m.err
}

type mockPersister struct {
	out  pipeline.PersistedRaster
	err  error
	epsg int
}

func (m *mockPersister) Persist(_ context.Context, _ string, epsg int) (pipeline.PersistedRaster, error) {
	m.epsg = epsg
	return m.out, m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []pipeline.UploadEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, evt pipeline.UploadEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.err
}

func newTestMetrics() *observability.Metrics {
	// Unregistered collectors avoid "already registered" panics across tests.
	return observability.NewMetricsForTesting()
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeFile writes content into a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
