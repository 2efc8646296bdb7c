package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acero-crm/acero-crm/internal/platform/db"
)

var (
	ErrNotFound = errors.New("record not found")
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetByDocNumber(ctx context.Context, docNumber string) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]QuotationWithClient, int, error)
	ListExpiring(ctx context.Context, cutoff time.Time) ([]Quotation, error)
	Create(ctx context.Context, quotation Quotation) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	ReplaceLines(ctx context.Context, quotationID int64, lines []LineItem) error
	UpdateStatus(ctx context.Context, id int64, status QuotationStatus, versionNumber int) error
	InsertVersion(ctx context.Context, version QuotationVersion) (int64, error)
	ListVersions(ctx context.Context, quotationID int64) ([]QuotationVersion, error)
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{db: tx, pool: r.pool}
		return fn(ctx, repoTx)
	})
}

const quotationColumns = `id, doc_number, client_id, owner, quote_date, due_at, status, currency,
	tax_rate_percent, freight_flat, subtotal, discount_total, tax_amount, grand_total,
	notes, version_number, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := r.scanQuotation(r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM quotations WHERE id = $1`, quotationColumns), id))
	if err != nil {
		return nil, err
	}
	q.Lines, err = r.getLines(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) GetByDocNumber(ctx context.Context, docNumber string) (*Quotation, error) {
	q, err := r.scanQuotation(r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM quotations WHERE doc_number = $1`, quotationColumns), docNumber))
	if err != nil {
		return nil, err
	}
	q.Lines, err = r.getLines(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.DocNumber, &q.ClientID, &q.Owner, &q.QuoteDate, &q.DueAt, &q.Status, &q.Currency,
		&q.TaxRatePercent, &q.FreightFlat, &q.Subtotal, &q.DiscountTotal, &q.TaxAmount, &q.GrandTotal,
		&q.Notes, &q.VersionNumber, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) getLines(ctx context.Context, quotationID int64) ([]LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, kind, name, sku, quantity, unit_price, discount_percent, line_subtotal, line_order
		FROM quotation_lines
		WHERE quotation_id = $1
		ORDER BY line_order, id
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []LineItem
	for rows.Next() {
		var line LineItem
		if err := rows.Scan(
			&line.ID, &line.QuotationID, &line.Kind, &line.Name, &line.SKU,
			&line.Quantity, &line.UnitPrice, &line.DiscountPercent, &line.LineSubtotal, &line.LineOrder,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]QuotationWithClient, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("q.client_id = $%d", argPos))
		args = append(args, *req.ClientID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("q.quote_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("q.quote_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM quotations q %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT q.id, q.doc_number, q.client_id, q.owner, q.quote_date, q.due_at, q.status, q.currency,
		       q.tax_rate_percent, q.freight_flat, q.subtotal, q.discount_total, q.tax_amount, q.grand_total,
		       q.notes, q.version_number, q.created_by, q.created_at, q.updated_at,
		       c.name AS client_name,
		       u.full_name AS created_by_name
		FROM quotations q
		JOIN clients c ON q.client_id = c.id
		JOIN users u ON q.created_by = u.id
		%s
		ORDER BY q.quote_date DESC, q.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotations []QuotationWithClient
	for rows.Next() {
		var q QuotationWithClient
		if err := rows.Scan(
			&q.ID, &q.DocNumber, &q.ClientID, &q.Owner, &q.QuoteDate, &q.DueAt, &q.Status, &q.Currency,
			&q.TaxRatePercent, &q.FreightFlat, &q.Subtotal, &q.DiscountTotal, &q.TaxAmount, &q.GrandTotal,
			&q.Notes, &q.VersionNumber, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
			&q.ClientName, &q.CreatedByName,
		); err != nil {
			return nil, 0, err
		}
		quotations = append(quotations, q)
	}

	return quotations, total, rows.Err()
}

// ListExpiring returns sent quotations whose due date has passed.
func (r *repository) ListExpiring(ctx context.Context, cutoff time.Time) ([]Quotation, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM quotations
		WHERE status = $1 AND due_at < $2
		ORDER BY due_at
	`, quotationColumns), StatusSent, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(
			&q.ID, &q.DocNumber, &q.ClientID, &q.Owner, &q.QuoteDate, &q.DueAt, &q.Status, &q.Currency,
			&q.TaxRatePercent, &q.FreightFlat, &q.Subtotal, &q.DiscountTotal, &q.TaxAmount, &q.GrandTotal,
			&q.Notes, &q.VersionNumber, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		quotations = append(quotations, q)
	}
	return quotations, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations (
			doc_number, client_id, owner, quote_date, due_at, status, currency,
			tax_rate_percent, freight_flat, subtotal, discount_total, tax_amount, grand_total,
			notes, version_number, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id
	`,
		q.DocNumber, q.ClientID, q.Owner, q.QuoteDate, q.DueAt, q.Status, q.Currency,
		q.TaxRatePercent, q.FreightFlat, q.Subtotal, q.DiscountTotal, q.TaxAmount, q.GrandTotal,
		q.Notes, q.VersionNumber, q.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE quotations SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{
		"quote_date", "due_at", "notes", "tax_rate_percent", "freight_flat",
		"subtotal", "discount_total", "tax_amount", "grand_total", "version_number",
	} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ReplaceLines(ctx context.Context, quotationID int64, lines []LineItem) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotation_lines WHERE quotation_id = $1`, quotationID); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO quotation_lines (
				id, quotation_id, kind, name, sku, quantity, unit_price,
				discount_percent, line_subtotal, line_order
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			line.ID, quotationID, line.Kind, line.Name, line.SKU, line.Quantity, line.UnitPrice,
			line.DiscountPercent, line.LineSubtotal, line.LineOrder,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status QuotationStatus, versionNumber int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations SET status = $2, version_number = $3, updated_at = NOW() WHERE id = $1
	`, id, status, versionNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertVersion appends a snapshot. The version table is insert-only;
// there is no update or delete statement for it anywhere in the code.
func (r *repository) InsertVersion(ctx context.Context, v QuotationVersion) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_versions (
			quotation_id, version_number, created_at, due_at, owner, status, total, change_note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, v.QuotationID, v.VersionNumber, v.CreatedAt, v.DueAt, v.Owner, v.Status, v.Total, v.ChangeNote).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) ListVersions(ctx context.Context, quotationID int64) ([]QuotationVersion, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, version_number, created_at, due_at, owner, status, total, change_note
		FROM quotation_versions
		WHERE quotation_id = $1
		ORDER BY version_number DESC
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []QuotationVersion
	for rows.Next() {
		var v QuotationVersion
		if err := rows.Scan(
			&v.ID, &v.QuotationID, &v.VersionNumber, &v.CreatedAt, &v.DueAt,
			&v.Owner, &v.Status, &v.Total, &v.ChangeNote,
		); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	// COT-{YY}{MM}-{SEQ}
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "COT", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COT-%s-%04d", date.Format("0601"), seq), nil
}
