package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("agent not found")
	ErrDuplicate = errors.New("duplicate agent slug")
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Agent, error)
	List(ctx context.Context) ([]Agent, error)
	ListEnabled(ctx context.Context) ([]Agent, error)
	Create(ctx context.Context, a Agent) (int64, error)
	Update(ctx context.Context, a Agent) error
	RecordProbe(ctx context.Context, id int64, status Status, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const agentColumns = `id, name, slug, description, webhook_url, is_enabled, last_status, last_checked_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Agent, error) {
	var a Agent
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM agents WHERE id = $1`, agentColumns), id).Scan(
		&a.ID, &a.Name, &a.Slug, &a.Description, &a.WebhookURL, &a.IsEnabled,
		&a.LastStatus, &a.LastCheckedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) List(ctx context.Context) ([]Agent, error) {
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM agents ORDER BY name`, agentColumns))
}

func (r *repository) ListEnabled(ctx context.Context) ([]Agent, error) {
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM agents WHERE is_enabled ORDER BY name`, agentColumns))
}

func (r *repository) list(ctx context.Context, query string) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Slug, &a.Description, &a.WebhookURL, &a.IsEnabled,
			&a.LastStatus, &a.LastCheckedAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, a Agent) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO agents (name, slug, description, webhook_url, is_enabled, last_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`, a.Name, a.Slug, a.Description, a.WebhookURL, a.IsEnabled, StatusUnknown).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, a Agent) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents
		SET name = $2, slug = $3, description = $4, webhook_url = $5, is_enabled = $6, updated_at = NOW()
		WHERE id = $1
	`, a.ID, a.Name, a.Slug, a.Description, a.WebhookURL, a.IsEnabled)
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

func (r *repository) RecordProbe(ctx context.Context, id int64, status Status, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents SET last_status = $2, last_checked_at = $3 WHERE id = $1
	`, id, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
