package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
)

// UploadFunc uploads a single file.
type UploadFunc func(ctx context.Context, path string) (Result, error)

// FileError records why one file of a batch failed.
type FileError struct {
	File    string
	Kind    domain.ErrorKind
	Message string
}

// Report summarizes a batch run.
type Report struct {
	RunID     uuid.UUID
	Attempted int
	Uploaded  int
	Rows      int
	Errors    []FileError
	Elapsed   time.Duration
}

// BatchConfig controls how a batch runs.
type BatchConfig struct {
	// Kind labels metrics and events, e.g. "profile" or "point".
	Kind string
	// Debug stops at the first failure and returns it.
	Debug bool
	// NFiles limits how many files are attempted. Zero means all.
	NFiles int
	// Publisher receives an event per file when set.
	Publisher Publisher
}

// Progress is a point-in-time view of a batch.
type Progress struct {
	RunID     string `json:"run_id,omitempty"`
	Kind      string `json:"kind"`
	Running   bool   `json:"running"`
	Total     int    `json:"total"`
	Attempted int    `json:"attempted"`
	Uploaded  int    `json:"uploaded"`
	Failed    int    `json:"failed"`
}

// Batch runs one uploader over many files in sequence.
type Batch struct {
	upload  UploadFunc
	cfg     BatchConfig
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	progress Progress
}

// NewBatch creates a Batch around an upload function.
func NewBatch(upload UploadFunc, cfg BatchConfig, logger *slog.Logger, metrics *observability.Metrics) *Batch {
	return &Batch{upload: upload, cfg: cfg, logger: logger, metrics: metrics, progress: Progress{Kind: cfg.Kind}}
}

// Progress reports how far the current or last run got.
func (b *Batch) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *Batch) track(rep Report, total int, running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = Progress{
		RunID:     rep.RunID.String(),
		Kind:      b.cfg.Kind,
		Running:   running,
		Total:     total,
		Attempted: rep.Attempted,
		Uploaded:  rep.Uploaded,
		Failed:    rep.Attempted - rep.Uploaded,
	}
}

// Push uploads files in order. In debug mode the first failure is returned
// along with the partial report. Otherwise failures are collected and the
// batch carries on. Cancelling ctx stops the batch between files.
func (b *Batch) Push(ctx context.Context, files []string) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.New()}
	b.metrics.BatchRunning.Set(1)
	defer b.metrics.BatchRunning.Set(0)

	if b.cfg.NFiles > 0 && len(files) > b.cfg.NFiles {
		files = files[:b.cfg.NFiles]
	}
	b.track(rep, len(files), true)
	defer func() { b.track(rep, len(files), false) }()
	b.logger.Info("batch started", "run_id", rep.RunID.String(), "kind", b.cfg.Kind, "files", len(files), "debug", b.cfg.Debug)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			rep.Elapsed = time.Since(start)
			return rep, fmt.Errorf("batch interrupted: %w", err)
		}

		rep.Attempted++
		b.metrics.FilesAttempted.Inc()
		res, err := b.upload(ctx, f)
		b.publish(ctx, rep.RunID, f, res, err)

		if err != nil {
			kind := domain.KindOf(err)
			b.metrics.FilesFailed.WithLabelValues(kind.String()).Inc()
			if b.cfg.Debug {
				rep.Elapsed = time.Since(start)
				return rep, err
			}
			b.logger.Error("upload failed", "file", f, "kind", kind.String(), "error", err)
			rep.Errors = append(rep.Errors, FileError{File: f, Kind: kind, Message: err.Error()})
			b.track(rep, len(files), true)
			continue
		}

		rep.Uploaded++
		rep.Rows += res.Rows
		b.metrics.FilesUploaded.Inc()
		b.track(rep, len(files), true)
	}

	rep.Elapsed = time.Since(start)
	if len(rep.Errors) > 0 {
		b.logger.Warn(fmt.Sprintf("%d files failed", len(rep.Errors)), "run_id", rep.RunID.String())
		for _, fe := range rep.Errors {
			b.logger.Warn("failed file", "file", fe.File, "kind", fe.Kind.String(), "error", fe.Message)
		}
	}
	b.logger.Info(fmt.Sprintf("%d / %d files uploaded.", rep.Uploaded, rep.Attempted),
		"run_id", rep.RunID.String(),
		"rows", rep.Rows,
		"elapsed", rep.Elapsed.String(),
	)
	return rep, nil
}

// publish emits the outcome of one file. Publishing failures are logged
// and never fail the batch.
func (b *Batch) publish(ctx context.Context, runID uuid.UUID, file string, res Result, uploadErr error) {
	if b.cfg.Publisher == nil {
		return
	}
	evt := UploadEvent{
		ID:         uuid.New(),
		RunID:      runID,
		File:       file,
		Kind:       b.cfg.Kind,
		Status:     StatusUploaded,
		Rows:       res.Rows,
		FinishedAt: time.Now().UTC(),
	}
	if uploadErr != nil {
		evt.Status = StatusFailed
		evt.ErrorKind = domain.KindOf(uploadErr).String()
		evt.Error = uploadErr.Error()
	}
	if err := b.cfg.Publisher.Publish(ctx, evt); err != nil {
		b.logger.Warn("publish upload event failed", "file", file, "error", err)
	}
}
