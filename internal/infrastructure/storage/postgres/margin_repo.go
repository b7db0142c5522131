package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"skusync/internal/core/apperror"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/pricing"
)

// Compile-time check that MarginRepo implements catalog.MarginMemory.
var _ catalog.MarginMemory = (*MarginRepo)(nil)

// MarginRepo remembers the last margin applied per price list, used to
// seed new products.
type MarginRepo struct {
	txManager *TxManager
}

// NewMarginRepo creates a new margin memory repository.
func NewMarginRepo(txManager *TxManager) *MarginRepo {
	return &MarginRepo{txManager: txManager}
}

func (r *MarginRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Get returns the remembered margin for a price list, or nil when none
// was stored yet.
func (r *MarginRepo) Get(ctx context.Context, list pricing.PriceList) (*float64, error) {
	sql, args, err := r.builder().
		Select("margin").
		From("margin_memory").
		Where(squirrel.Eq{"price_list": string(list)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select margin: %w", err)
	}

	var row struct {
		Margin float64 `db:"margin"`
	}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, apperror.NewDatabase(err)
	}
	return &row.Margin, nil
}

// Set stores the margin for a price list.
func (r *MarginRepo) Set(ctx context.Context, list pricing.PriceList, margin float64) error {
	sql, args, err := r.builder().
		Insert("margin_memory").
		Columns("price_list", "margin").
		Values(string(list), margin).
		Suffix(`ON CONFLICT (price_list) DO UPDATE SET
			margin = EXCLUDED.margin,
			updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert margin: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(err)
	}
	return nil
}
