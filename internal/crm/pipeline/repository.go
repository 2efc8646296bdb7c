package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("deal not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*Deal, error)
	ListOpen(ctx context.Context) ([]DealWithClient, error)
	ListByClient(ctx context.Context, clientID int64) ([]Deal, error)
	Create(ctx context.Context, d Deal) (int64, error)
	Update(ctx context.Context, d Deal) error
	Move(ctx context.Context, id int64, stage Stage, closedAt *time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const dealColumns = `id, client_id, title, stage, estimated_value, quotation_id, expected_close, closed_at, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Deal, error) {
	var d Deal
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM deals WHERE id = $1`, dealColumns), id).Scan(
		&d.ID, &d.ClientID, &d.Title, &d.Stage, &d.EstimatedValue, &d.QuotationID,
		&d.ExpectedClose, &d.ClosedAt, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListOpen returns board cards: open deals plus deals closed within the
// last thirty days so won/lost columns do not grow without bound.
func (r *repository) ListOpen(ctx context.Context) ([]DealWithClient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.client_id, d.title, d.stage, d.estimated_value, d.quotation_id,
		       d.expected_close, d.closed_at, d.created_by, d.created_at, d.updated_at,
		       c.name AS client_name
		FROM deals d
		JOIN clients c ON d.client_id = c.id
		WHERE d.closed_at IS NULL OR d.closed_at > NOW() - INTERVAL '30 days'
		ORDER BY d.updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DealWithClient
	for rows.Next() {
		var d DealWithClient
		if err := rows.Scan(
			&d.ID, &d.ClientID, &d.Title, &d.Stage, &d.EstimatedValue, &d.QuotationID,
			&d.ExpectedClose, &d.ClosedAt, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
			&d.ClientName,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) ListByClient(ctx context.Context, clientID int64) ([]Deal, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM deals WHERE client_id = $1 ORDER BY created_at DESC
	`, dealColumns), clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deal
	for rows.Next() {
		var d Deal
		if err := rows.Scan(
			&d.ID, &d.ClientID, &d.Title, &d.Stage, &d.EstimatedValue, &d.QuotationID,
			&d.ExpectedClose, &d.ClosedAt, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, d Deal) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO deals (client_id, title, stage, estimated_value, quotation_id, expected_close, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id
	`, d.ClientID, d.Title, d.Stage, d.EstimatedValue, d.QuotationID, d.ExpectedClose, d.CreatedBy).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, d Deal) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals
		SET title = $2, estimated_value = $3, quotation_id = $4, expected_close = $5, updated_at = NOW()
		WHERE id = $1
	`, d.ID, d.Title, d.EstimatedValue, d.QuotationID, d.ExpectedClose)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Move(ctx context.Context, id int64, stage Stage, closedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deals SET stage = $2, closed_at = $3, updated_at = NOW() WHERE id = $1
	`, id, stage, closedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
