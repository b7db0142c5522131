package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"skusync/internal/core/apperror"
	"skusync/internal/core/id"
	"skusync/internal/core/types"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/pricing"
)

// Compile-time check that ProductRepo implements catalog.Repository.
var _ catalog.Repository = (*ProductRepo)(nil)

const uniqueViolation = "23505"

var productColumns = []string{
	"id", "sku", "name", "kind", "purchase_cost", "prices",
	"external_ref", "sync_pending", "last_synced_at", "last_edited_at",
	"created_at", "updated_at",
}

// productRow maps the products table. Price entries are stored as a
// JSONB array in the shape the API serves them.
type productRow struct {
	ID           id.ID       `db:"id"`
	SKU          string      `db:"sku"`
	Name         string      `db:"name"`
	Kind         string      `db:"kind"`
	PurchaseCost types.Money `db:"purchase_cost"`
	Prices       []byte      `db:"prices"`
	ExternalRef  *string     `db:"external_ref"`
	SyncPending  bool        `db:"sync_pending"`
	LastSyncedAt *time.Time  `db:"last_synced_at"`
	LastEditedAt *time.Time  `db:"last_edited_at"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type bomRow struct {
	ProductID   id.ID `db:"product_id"`
	ComponentID id.ID `db:"component_id"`
	Quantity    int   `db:"quantity"`
	Position    int   `db:"position"`
}

// ProductRepo stores products and their bill-of-materials lines.
type ProductRepo struct {
	txManager *TxManager
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *TxManager) *ProductRepo {
	return &ProductRepo{txManager: txManager}
}

func (r *ProductRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// List returns all products with their components, oldest first.
func (r *ProductRepo) List(ctx context.Context) ([]*catalog.Product, error) {
	sql, args, err := r.builder().
		Select(productColumns...).
		From("products").
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select products: %w", err)
	}

	var rows []productRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	bomSQL, bomArgs, err := r.builder().
		Select("product_id", "component_id", "quantity", "position").
		From("bom_entries").
		OrderBy("product_id", "position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select bom: %w", err)
	}

	var bomRows []bomRow
	if err := pgxscan.Select(ctx, querier, &bomRows, bomSQL, bomArgs...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	componentsByProduct := make(map[id.ID][]catalog.Component)
	for _, b := range bomRows {
		componentsByProduct[b.ProductID] = append(componentsByProduct[b.ProductID], catalog.Component{
			ComponentID: b.ComponentID,
			Quantity:    b.Quantity,
		})
	}

	products := make([]*catalog.Product, 0, len(rows))
	for i := range rows {
		p, err := rowToProduct(&rows[i], componentsByProduct[rows[i].ID])
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// Get returns one product with its components.
func (r *ProductRepo) Get(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	sql, args, err := r.builder().
		Select(productColumns...).
		From("products").
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select product: %w", err)
	}

	var row productRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, apperror.NewDatabase(err)
	}

	bomSQL, bomArgs, err := r.builder().
		Select("product_id", "component_id", "quantity", "position").
		From("bom_entries").
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select bom: %w", err)
	}

	var bomRows []bomRow
	if err := pgxscan.Select(ctx, querier, &bomRows, bomSQL, bomArgs...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	components := make([]catalog.Component, 0, len(bomRows))
	for _, b := range bomRows {
		components = append(components, catalog.Component{ComponentID: b.ComponentID, Quantity: b.Quantity})
	}
	return rowToProduct(&row, components)
}

// Save upserts the product and rewrites its bill of materials in one
// transaction. Components are replaced wholesale: delete all, insert
// the current list in order.
func (r *ProductRepo) Save(ctx context.Context, p *catalog.Product) error {
	row, err := productToRow(p)
	if err != nil {
		return err
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := r.txManager.GetQuerier(ctx)

		sql, args, err := r.builder().
			Insert("products").
			Columns("id", "sku", "name", "kind", "purchase_cost", "prices",
				"external_ref", "sync_pending", "last_synced_at", "last_edited_at").
			Values(row.ID, row.SKU, row.Name, row.Kind, row.PurchaseCost, row.Prices,
				row.ExternalRef, row.SyncPending, row.LastSyncedAt, row.LastEditedAt).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				sku = EXCLUDED.sku,
				name = EXCLUDED.name,
				kind = EXCLUDED.kind,
				purchase_cost = EXCLUDED.purchase_cost,
				prices = EXCLUDED.prices,
				external_ref = EXCLUDED.external_ref,
				sync_pending = EXCLUDED.sync_pending,
				last_synced_at = EXCLUDED.last_synced_at,
				last_edited_at = EXCLUDED.last_edited_at,
				updated_at = now()`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert product: %w", err)
		}

		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return mapProductError(err, p)
		}

		delSQL, delArgs, err := r.builder().
			Delete("bom_entries").
			Where(squirrel.Eq{"product_id": p.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete bom: %w", err)
		}
		if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
			return apperror.NewDatabase(err)
		}

		for pos, c := range p.Components {
			insSQL, insArgs, err := r.builder().
				Insert("bom_entries").
				Columns("product_id", "component_id", "quantity", "position").
				Values(p.ID, c.ComponentID, c.Quantity, pos).
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert bom: %w", err)
			}
			if _, err := querier.Exec(ctx, insSQL, insArgs...); err != nil {
				return apperror.NewDatabase(err)
			}
		}
		return nil
	})
}

// Delete removes a product. Its own BOM lines go with it; lines in
// other composites that reference it are left dangling on purpose.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := r.txManager.GetQuerier(ctx)

		delBom, bomArgs, err := r.builder().
			Delete("bom_entries").
			Where(squirrel.Eq{"product_id": productID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete bom: %w", err)
		}
		if _, err := querier.Exec(ctx, delBom, bomArgs...); err != nil {
			return apperror.NewDatabase(err)
		}

		sql, args, err := r.builder().
			Delete("products").
			Where(squirrel.Eq{"id": productID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete product: %w", err)
		}

		result, err := querier.Exec(ctx, sql, args...)
		if err != nil {
			return apperror.NewDatabase(err)
		}
		if result.RowsAffected() == 0 {
			return apperror.NewNotFound("product", productID.String())
		}
		return nil
	})
}

func rowToProduct(row *productRow, components []catalog.Component) (*catalog.Product, error) {
	var prices []pricing.Entry
	if len(row.Prices) > 0 {
		if err := json.Unmarshal(row.Prices, &prices); err != nil {
			return nil, fmt.Errorf("decode prices for %s: %w", row.ID, err)
		}
	}
	if prices == nil {
		prices = pricing.NewEntries(nil)
	}

	return &catalog.Product{
		ID:           row.ID,
		SKU:          row.SKU,
		Name:         row.Name,
		Kind:         catalog.Kind(row.Kind),
		PurchaseCost: row.PurchaseCost,
		Prices:       prices,
		Components:   components,
		ExternalRef:  row.ExternalRef,
		SyncPending:  row.SyncPending,
		LastSyncedAt: row.LastSyncedAt,
		LastEditedAt: row.LastEditedAt,
	}, nil
}

func productToRow(p *catalog.Product) (*productRow, error) {
	prices, err := json.Marshal(p.Prices)
	if err != nil {
		return nil, fmt.Errorf("encode prices for %s: %w", p.ID, err)
	}
	return &productRow{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Kind:         string(p.Kind),
		PurchaseCost: p.PurchaseCost,
		Prices:       prices,
		ExternalRef:  p.ExternalRef,
		SyncPending:  p.SyncPending,
		LastSyncedAt: p.LastSyncedAt,
		LastEditedAt: p.LastEditedAt,
	}, nil
}

func mapProductError(err error, p *catalog.Product) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.NewDuplicate("product", "sku", p.SKU)
	}
	return apperror.NewDatabase(err)
}
