package invoices

import "time"

// Invoice is a billing summary derived from an accepted quotation.
// Fiscal stamping happens outside this system; these records exist so
// sales can see what has been billed against each quote.
type Invoice struct {
	ID          int64     `json:"id" db:"id"`
	Folio       string    `json:"folio" db:"folio"`
	QuotationID int64     `json:"quotation_id" db:"quotation_id"`
	ClientID    int64     `json:"client_id" db:"client_id"`
	Currency    string    `json:"currency" db:"currency"`
	Subtotal    float64   `json:"subtotal" db:"subtotal"`
	TaxAmount   float64   `json:"tax_amount" db:"tax_amount"`
	Total       float64   `json:"total" db:"total"`
	IssuedAt    time.Time `json:"issued_at" db:"issued_at"`
	CreatedBy   int64     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// InvoiceWithRefs joins listing rows with display fields.
type InvoiceWithRefs struct {
	Invoice
	ClientName     string `json:"client_name" db:"client_name"`
	QuoteDocNumber string `json:"quote_doc_number" db:"quote_doc_number"`
}

// MonthlyTotal aggregates issued invoices for one calendar month.
type MonthlyTotal struct {
	Year  int     `json:"year" db:"year"`
	Month int     `json:"month" db:"month"`
	Count int     `json:"count" db:"count"`
	Total float64 `json:"total" db:"total"`
}

type ListInvoicesRequest struct {
	ClientID *int64 `json:"client_id,omitempty"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}
