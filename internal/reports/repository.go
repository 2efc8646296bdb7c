package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository interface {
	Summary(ctx context.Context) (KPISummary, error)
	StatusBreakdown(ctx context.Context) ([]StatusCount, error)
	MonthlyTrend(ctx context.Context, months int) ([]MonthlyQuoteTotal, error)
	TopClients(ctx context.Context, limit int) ([]TopClient, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Summary(ctx context.Context) (KPISummary, error) {
	var s KPISummary
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM quotations WHERE status IN ('draft', 'sent')),
			COALESCE((SELECT SUM(grand_total) FROM quotations
				WHERE quote_date >= date_trunc('month', NOW())), 0),
			COALESCE((SELECT SUM(grand_total) FROM quotations
				WHERE status = 'accepted' AND updated_at >= date_trunc('month', NOW())), 0),
			COALESCE((SELECT SUM(estimated_value) FROM deals WHERE closed_at IS NULL), 0),
			COALESCE((SELECT SUM(total) FROM invoices
				WHERE issued_at >= date_trunc('month', NOW())), 0),
			(SELECT COUNT(*) FROM clients WHERE lifecycle = 'client')
	`).Scan(&s.OpenQuotes, &s.QuotedThisMonth, &s.AcceptedThisMonth, &s.PipelineValue, &s.InvoicedThisMonth, &s.ActiveClients)
	if err != nil {
		return KPISummary{}, err
	}

	var resolved, accepted int
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status IN ('accepted', 'declined', 'expired')),
		       COUNT(*) FILTER (WHERE status = 'accepted')
		FROM quotations
		WHERE quote_date >= NOW() - INTERVAL '90 days'
	`).Scan(&resolved, &accepted)
	if err != nil {
		return KPISummary{}, err
	}
	if resolved > 0 {
		s.AcceptanceRate = float64(accepted) / float64(resolved)
	}
	return s, nil
}

func (r *repository) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM quotations
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *repository) MonthlyTrend(ctx context.Context, months int) ([]MonthlyQuoteTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', quote_date), 'YYYY-MM') AS period,
		       COUNT(*),
		       COALESCE(SUM(grand_total), 0)
		FROM quotations
		WHERE quote_date >= date_trunc('month', NOW()) - ($1 || ' months')::interval
		GROUP BY 1
		ORDER BY 1
	`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyQuoteTotal
	for rows.Next() {
		var mt MonthlyQuoteTotal
		if err := rows.Scan(&mt.Period, &mt.Count, &mt.Total); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (r *repository) TopClients(ctx context.Context, limit int) ([]TopClient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(q.grand_total), 0) AS accepted
		FROM clients c
		JOIN quotations q ON q.client_id = c.id AND q.status = 'accepted'
		GROUP BY c.id, c.name
		ORDER BY accepted DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopClient
	for rows.Next() {
		var tc TopClient
		if err := rows.Scan(&tc.ClientID, &tc.Name, &tc.Accepted); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
