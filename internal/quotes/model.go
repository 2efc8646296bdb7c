package quotes

import "time"

// LineItemKind distinguishes product rows from service rows. The kind
// only affects display labels (quantity vs hours), never arithmetic.
type LineItemKind string

const (
	KindProduct LineItemKind = "product"
	KindService LineItemKind = "service"
)

// LineItem is one product or service row within a quotation.
type LineItem struct {
	ID              string       `json:"id" db:"id"`
	QuotationID     int64        `json:"quotation_id" db:"quotation_id"`
	Kind            LineItemKind `json:"kind" db:"kind"`
	Name            string       `json:"name" db:"name"`
	SKU             string       `json:"sku" db:"sku"`
	Quantity        float64      `json:"quantity" db:"quantity"`
	UnitPrice       float64      `json:"unit_price" db:"unit_price"`
	DiscountPercent float64      `json:"discount_percent" db:"discount_percent"`
	// LineSubtotal is derived from the three inputs above and is
	// rewritten on every mutation, never stored out of sync.
	LineSubtotal float64 `json:"line_subtotal" db:"line_subtotal"`
	LineOrder    int     `json:"line_order" db:"line_order"`
}

// QuotationStatus enumerates the quotation lifecycle states.
type QuotationStatus string

const (
	StatusDraft    QuotationStatus = "draft"
	StatusSent     QuotationStatus = "sent"
	StatusAccepted QuotationStatus = "accepted"
	StatusDeclined QuotationStatus = "declined"
	StatusExpired  QuotationStatus = "expired"
)

// transitionTable defines the only legal status moves:
// draft -> sent -> {accepted, declined, expired}.
var transitionTable = map[QuotationStatus][]QuotationStatus{
	StatusDraft:    {StatusSent},
	StatusSent:     {StatusAccepted, StatusDeclined, StatusExpired},
	StatusAccepted: {},
	StatusDeclined: {},
	StatusExpired:  {},
}

// CanTransition reports whether moving from s to target is allowed.
func (s QuotationStatus) CanTransition(target QuotationStatus) bool {
	for _, allowed := range transitionTable[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Valid reports whether the status is a known lifecycle state.
func (s QuotationStatus) Valid() bool {
	_, ok := transitionTable[s]
	return ok
}

// Quotation is the aggregate root: header, derived totals and lines.
type Quotation struct {
	ID             int64           `json:"id" db:"id"`
	DocNumber      string          `json:"doc_number" db:"doc_number"`
	ClientID       int64           `json:"client_id" db:"client_id"`
	Owner          string          `json:"owner" db:"owner"`
	QuoteDate      time.Time       `json:"quote_date" db:"quote_date"`
	DueAt          time.Time       `json:"due_at" db:"due_at"`
	Status         QuotationStatus `json:"status" db:"status"`
	Currency       string          `json:"currency" db:"currency"`
	TaxRatePercent float64         `json:"tax_rate_percent" db:"tax_rate_percent"`
	FreightFlat    float64         `json:"freight_flat" db:"freight_flat"`
	Subtotal       float64         `json:"subtotal" db:"subtotal"`
	DiscountTotal  float64         `json:"discount_total" db:"discount_total"`
	TaxAmount      float64         `json:"tax_amount" db:"tax_amount"`
	GrandTotal     float64         `json:"grand_total" db:"grand_total"`
	Notes          *string         `json:"notes,omitempty" db:"notes"`
	VersionNumber  int             `json:"version_number" db:"version_number"`
	CreatedBy      int64           `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	Lines          []LineItem      `json:"lines,omitempty" db:"-"`
}

// Totals returns the aggregate's stored derived figures.
func (q *Quotation) Totals() Totals {
	return Totals{
		Subtotal:      q.Subtotal,
		DiscountTotal: q.DiscountTotal,
		TaxAmount:     q.TaxAmount,
		GrandTotal:    q.GrandTotal,
	}
}

// QuotationVersion is an immutable snapshot appended at every save and
// status transition. Snapshots are never mutated or deleted; the
// highest VersionNumber defines the quotation's current state.
type QuotationVersion struct {
	ID            int64           `json:"id" db:"id"`
	QuotationID   int64           `json:"quotation_id" db:"quotation_id"`
	VersionNumber int             `json:"version_number" db:"version_number"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	DueAt         time.Time       `json:"due_at" db:"due_at"`
	Owner         string          `json:"owner" db:"owner"`
	Status        QuotationStatus `json:"status" db:"status"`
	Total         float64         `json:"total" db:"total"`
	ChangeNote    string          `json:"change_note" db:"change_note"`
}

// QuotationWithClient joins listing rows with display names.
type QuotationWithClient struct {
	Quotation
	ClientName    string `json:"client_name" db:"client_name"`
	CreatedByName string `json:"created_by_name" db:"created_by_name"`
}
