package activity

import (
	"context"
	"encoding/json"
	"time"

	appctx "skusync/internal/core/context"
	"skusync/pkg/logger"
)

// Service implements Recorder over a Repository, stamping entries with
// the acting user taken from the request context.
type Service struct {
	repo Repository
}

// NewService creates a new activity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var _ Recorder = (*Service)(nil)

// Append records an activity entry. Failures are logged and swallowed;
// the log must never break the operation it describes.
func (s *Service) Append(ctx context.Context, kind Kind, message string, details any) {
	entry := &Entry{
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			logger.Warn(ctx, "activity details not serializable", "error", err)
		} else {
			entry.Details = raw
		}
	}

	if user := appctx.GetUser(ctx); user != nil {
		entry.UserID = user.UserID
		entry.UserName = user.Name
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		logger.Error(ctx, "failed to append activity entry",
			"kind", kind,
			"message", message,
			"error", err,
		)
	}
}

// ListRecent returns the newest entries, capped at limit.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListRecent(ctx, limit)
}
