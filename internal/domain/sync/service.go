// Package sync pushes validated products to the connected CRM catalog.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skusync/internal/core/apperror"
	"skusync/internal/core/id"
	"skusync/internal/domain/activity"
	"skusync/internal/domain/catalog"
	"skusync/pkg/logger"
)

// CRMClient pushes a product to the external catalog and returns its
// external id. Implementations create or update depending on whether
// the product already carries an external reference.
type CRMClient interface {
	PushProduct(ctx context.Context, p *catalog.Product, description string) (string, error)
}

// Outcome of a single product sync attempt.
type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeRefused Outcome = "refused"
	OutcomeFailed  Outcome = "failed"
)

// Result describes one product's sync attempt.
type Result struct {
	ProductID id.ID   `json:"productId"`
	SKU       string  `json:"sku"`
	Outcome   Outcome `json:"outcome"`
	Message   string  `json:"message,omitempty"`
}

// Summary aggregates a bulk sync run.
type Summary struct {
	Total   int      `json:"total"`
	Synced  int      `json:"synced"`
	Refused int      `json:"refused"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// Service coordinates validation-gated pushes to the CRM.
type Service struct {
	repo     catalog.Repository
	client   CRMClient
	activity activity.Recorder
	now      func() time.Time
}

// NewService creates a new sync service.
func NewService(repo catalog.Repository, client CRMClient, recorder activity.Recorder) *Service {
	return &Service{
		repo:     repo,
		client:   client,
		activity: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SyncOne validates one product against the current snapshot and, only
// if it passes every check, pushes it to the CRM. On success the
// product is stamped with the external reference and persisted; on any
// failure it is left untouched.
func (s *Service) SyncOne(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	synced, err := s.syncProduct(ctx, p, all)
	if err != nil {
		return nil, err
	}
	return synced, nil
}

// SyncAll pushes every product flagged as pending, in snapshot order.
// Products fail independently: a refused or failed item never aborts
// the run, but a cancelled context stops it between items.
func (s *Service) SyncAll(ctx context.Context) (*Summary, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, p := range all {
		if !p.SyncPending {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Total++

		_, err := s.syncProduct(ctx, p, all)
		switch {
		case err == nil:
			summary.Synced++
			summary.Results = append(summary.Results, Result{
				ProductID: p.ID, SKU: p.SKU, Outcome: OutcomeSynced,
			})
		case isRefusal(err):
			summary.Refused++
			summary.Results = append(summary.Results, Result{
				ProductID: p.ID, SKU: p.SKU, Outcome: OutcomeRefused, Message: refusalMessage(err),
			})
		default:
			summary.Failed++
			summary.Results = append(summary.Results, Result{
				ProductID: p.ID, SKU: p.SKU, Outcome: OutcomeFailed, Message: err.Error(),
			})
		}
	}

	s.record(ctx, activity.KindSync,
		fmt.Sprintf("Bulk sync finished: %d synced, %d refused, %d failed", summary.Synced, summary.Refused, summary.Failed),
		summary,
	)
	return summary, nil
}

func (s *Service) syncProduct(ctx context.Context, p *catalog.Product, all []*catalog.Product) (*catalog.Product, error) {
	if res := catalog.Validate(p, all); !res.Valid {
		reason := res.Failure.Message()
		s.record(ctx, activity.KindWarning,
			fmt.Sprintf("Sync refused for %s: %s", displaySKU(p), reason),
			map[string]any{"id": p.ID, "failure": res.Failure},
		)
		return nil, apperror.NewSyncRefused(p.SKU, reason)
	}

	description := BuildDescription(p, catalog.BuildIndex(all))

	externalID, err := s.client.PushProduct(ctx, p, description)
	if err != nil {
		s.record(ctx, activity.KindError,
			fmt.Sprintf("Sync failed for %s", displaySKU(p)),
			map[string]any{"id": p.ID, "error": err.Error()},
		)
		return nil, err
	}

	synced := p.Clone()
	synced.MarkSynced(externalID, s.now())
	if err := s.repo.Save(ctx, synced); err != nil {
		logger.Error(ctx, "failed to persist sync state",
			"product_id", p.ID, "external_id", externalID, "error", err)
		return nil, err
	}

	s.record(ctx, activity.KindSync,
		fmt.Sprintf("Synced product %s to Teamleader", displaySKU(p)),
		map[string]any{"id": p.ID, "externalRef": externalID},
	)
	return synced, nil
}

// BuildDescription renders the CRM description. Composites list their
// bill of materials one component per line as "N x Name"; simple
// products use their own name.
func BuildDescription(p *catalog.Product, idx catalog.Index) string {
	if !p.IsComposite() {
		return p.Name
	}

	lines := make([]string, 0, len(p.Components))
	for _, c := range p.Components {
		comp := idx.Lookup(c.ComponentID)
		if comp == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d x %s", c.Quantity, comp.Name))
	}
	return strings.Join(lines, "\n")
}

func (s *Service) record(ctx context.Context, kind activity.Kind, message string, details any) {
	if s.activity != nil {
		s.activity.Append(ctx, kind, message, details)
	}
}

func displaySKU(p *catalog.Product) string {
	if strings.TrimSpace(p.SKU) != "" {
		return p.SKU
	}
	return p.ID.String()
}

func isRefusal(err error) bool {
	return apperror.GetAppErrorCode(err) == apperror.CodeSyncRefused
}

func refusalMessage(err error) string {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
