package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Upload statuses carried by UploadEvent.
const (
	StatusUploaded = "uploaded"
	StatusFailed   = "failed"
)

// UploadEvent is published after each file of a batch.
type UploadEvent struct {
	ID         uuid.UUID `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	File       string    `json:"file"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Rows       int       `json:"rows"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
