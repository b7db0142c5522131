package dto

import syncdomain "skusync/internal/domain/sync"

// SyncResultResponse is one product's sync attempt.
type SyncResultResponse struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
}

// SyncSummaryResponse aggregates a bulk sync run.
type SyncSummaryResponse struct {
	Total   int                  `json:"total"`
	Synced  int                  `json:"synced"`
	Refused int                  `json:"refused"`
	Failed  int                  `json:"failed"`
	Results []SyncResultResponse `json:"results"`
}

// FromSummary maps a domain sync summary.
func FromSummary(s *syncdomain.Summary) SyncSummaryResponse {
	results := make([]SyncResultResponse, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, SyncResultResponse{
			ProductID: r.ProductID.String(),
			SKU:       r.SKU,
			Outcome:   string(r.Outcome),
			Message:   r.Message,
		})
	}
	return SyncSummaryResponse{
		Total:   s.Total,
		Synced:  s.Synced,
		Refused: s.Refused,
		Failed:  s.Failed,
		Results: results,
	}
}
