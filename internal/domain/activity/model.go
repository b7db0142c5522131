// Package activity provides the append-only activity log shown in the
// admin UI and written by catalog, sync and import operations.
package activity

import (
	"context"
	"encoding/json"
	"time"
)

// Kind classifies a log entry.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindSync    Kind = "sync"
	KindImport  Kind = "import"
)

// Entry is one activity log line.
type Entry struct {
	ID        int64           `json:"id"`
	Kind      Kind            `json:"kind"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	UserName  string          `json:"userName,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Repository defines activity log persistence.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder is the narrow write-side port handed to other domains.
// Appends are fire-and-forget: a failed log write never fails the
// operation that produced it.
type Recorder interface {
	Append(ctx context.Context, kind Kind, message string, details any)
}
