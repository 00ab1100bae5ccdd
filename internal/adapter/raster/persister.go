package raster

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

// TileTable receives the tiles raster2pgsql emits.
const TileTable = "public.image_tiles"

// TileCommand is the raster2pgsql invocation for one handle. Tiles are
// 256x256 and registered out-of-db (-R) so the data stays where Put left it.
func TileCommand(handle string, epsg int) []string {
	return []string{
		"raster2pgsql",
		"-s", strconv.Itoa(epsg),
		"-t", "256x256",
		"-R", handle,
		"-a", TileTable,
	}
}

// runner executes a command and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// blobStore copies a raster somewhere the database can read it.
type blobStore interface {
	Put(ctx context.Context, src string) (string, error)
}

// Persister stores a raster and optionally tiles it.
// It implements pipeline.RasterPersister.
type Persister struct {
	store  blobStore
	tile   bool
	run    runner
	logger *slog.Logger
}

// NewPersister creates a persister. With tile set, raster2pgsql must be on PATH.
func NewPersister(store blobStore, tile bool, logger *slog.Logger) *Persister {
	return &Persister{store: store, tile: tile, run: execRunner, logger: logger}
}

// Persist stores path and, when tiling, returns the tile insert SQL.
func (p *Persister) Persist(ctx context.Context, path string, epsg int) (pipeline.PersistedRaster, error) {
	handle, err := p.store.Put(ctx, path)
	if err != nil {
		return pipeline.PersistedRaster{}, err
	}
	out := pipeline.PersistedRaster{Handle: handle}
	if !p.tile {
		return out, nil
	}

	args := TileCommand(handle, epsg)
	sql, err := p.run(ctx, args[0], args[1:]...)
	if err != nil {
		return pipeline.PersistedRaster{}, fmt.Errorf("tile raster %s: %w", handle, err)
	}
	out.TileSQL = string(sql)
	out.Tiles = strings.Count(out.TileSQL, "INSERT INTO")
	p.logger.Debug("raster tiled", "handle", handle, "tiles", out.Tiles)
	return out, nil
}
