package dto

import (
	"encoding/json"
	"time"

	"skusync/internal/domain/activity"
)

// LogEntryResponse is one activity log line.
type LogEntryResponse struct {
	ID        int64           `json:"id"`
	Kind      string          `json:"kind"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	UserName  string          `json:"userName,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromLogEntries maps activity entries.
func FromLogEntries(entries []activity.Entry) []LogEntryResponse {
	out := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntryResponse{
			ID:        e.ID,
			Kind:      string(e.Kind),
			Message:   e.Message,
			Details:   e.Details,
			UserID:    e.UserID,
			UserName:  e.UserName,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
