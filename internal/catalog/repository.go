package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("catalog item not found")
	ErrDuplicate = errors.New("duplicate sku")
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Item, error)
	GetBySKU(ctx context.Context, sku string) (*Item, error)
	List(ctx context.Context, req ListItemsRequest) ([]Item, int, error)
	Create(ctx context.Context, item Item) (int64, error)
	Update(ctx context.Context, item Item) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const itemColumns = `id, sku, name, kind, unit_price, uom, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Item, error) {
	return scanItem(r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM catalog_items WHERE id = $1`, itemColumns), id))
}

func (r *repository) GetBySKU(ctx context.Context, sku string) (*Item, error) {
	return scanItem(r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM catalog_items WHERE sku = $1`, itemColumns), sku))
}

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Kind, &it.UnitPrice, &it.UOM, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r *repository) List(ctx context.Context, req ListItemsRequest) ([]Item, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1

	if req.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR sku ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.Kind != nil {
		where += fmt.Sprintf(" AND kind = $%d", argPos)
		args = append(args, *req.Kind)
		argPos++
	}
	if req.OnlyActive {
		where += " AND is_active"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM catalog_items "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM catalog_items %s ORDER BY name LIMIT $%d OFFSET $%d`, itemColumns, where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SKU, &it.Name, &it.Kind, &it.UnitPrice, &it.UOM, &it.IsActive, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO catalog_items (sku, name, kind, unit_price, uom, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`, item.SKU, item.Name, item.Kind, item.UnitPrice, item.UOM, item.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, item Item) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE catalog_items
		SET sku = $2, name = $3, kind = $4, unit_price = $5, uom = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
	`, item.ID, item.SKU, item.Name, item.Kind, item.UnitPrice, item.UOM, item.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE catalog_items SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
