package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("invoice not found")
	ErrDuplicate = errors.New("quotation already invoiced")
)

type Repository interface {
	Get(ctx context.Context, id int64) (*InvoiceWithRefs, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceWithRefs, int, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	ExistsForQuotation(ctx context.Context, quotationID int64) (bool, error)
	MonthlyTotals(ctx context.Context, months int) ([]MonthlyTotal, error)
	NextFolio(ctx context.Context, issuedAt time.Time) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const refColumns = `
	i.id, i.folio, i.quotation_id, i.client_id, i.currency, i.subtotal, i.tax_amount, i.total,
	i.issued_at, i.created_by, i.created_at,
	c.name AS client_name, q.doc_number AS quote_doc_number`

func (r *repository) Get(ctx context.Context, id int64) (*InvoiceWithRefs, error) {
	var inv InvoiceWithRefs
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM invoices i
		JOIN clients c ON i.client_id = c.id
		JOIN quotations q ON i.quotation_id = q.id
		WHERE i.id = $1
	`, refColumns), id).Scan(
		&inv.ID, &inv.Folio, &inv.QuotationID, &inv.ClientID, &inv.Currency,
		&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.IssuedAt, &inv.CreatedBy, &inv.CreatedAt,
		&inv.ClientName, &inv.QuoteDocNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceWithRefs, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argPos := 1
	if req.ClientID != nil {
		where += fmt.Sprintf(" AND i.client_id = $%d", argPos)
		args = append(args, *req.ClientID)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices i "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM invoices i
		JOIN clients c ON i.client_id = c.id
		JOIN quotations q ON i.quotation_id = q.id
		%s
		ORDER BY i.issued_at DESC, i.id DESC
		LIMIT $%d OFFSET $%d
	`, refColumns, where, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []InvoiceWithRefs
	for rows.Next() {
		var inv InvoiceWithRefs
		if err := rows.Scan(
			&inv.ID, &inv.Folio, &inv.QuotationID, &inv.ClientID, &inv.Currency,
			&inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.IssuedAt, &inv.CreatedBy, &inv.CreatedAt,
			&inv.ClientName, &inv.QuoteDocNumber,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (folio, quotation_id, client_id, currency, subtotal, tax_amount, total, issued_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id
	`, inv.Folio, inv.QuotationID, inv.ClientID, inv.Currency, inv.Subtotal, inv.TaxAmount, inv.Total, inv.IssuedAt, inv.CreatedBy).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) ExistsForQuotation(ctx context.Context, quotationID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM invoices WHERE quotation_id = $1)`, quotationID).Scan(&exists)
	return exists, err
}

func (r *repository) MonthlyTotals(ctx context.Context, months int) ([]MonthlyTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(YEAR FROM issued_at)::int AS year,
		       EXTRACT(MONTH FROM issued_at)::int AS month,
		       COUNT(*) AS count,
		       COALESCE(SUM(total), 0) AS total
		FROM invoices
		WHERE issued_at >= date_trunc('month', NOW()) - ($1 || ' months')::interval
		GROUP BY 1, 2
		ORDER BY 1 DESC, 2 DESC
	`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyTotal
	for rows.Next() {
		var mt MonthlyTotal
		if err := rows.Scan(&mt.Year, &mt.Month, &mt.Count, &mt.Total); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (r *repository) NextFolio(ctx context.Context, issuedAt time.Time) (string, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "FAC", issuedAt.Format("200601")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FAC-%s-%04d", issuedAt.Format("0601"), seq), nil
}
