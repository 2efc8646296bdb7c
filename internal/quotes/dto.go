package quotes

import "time"

type LineItemRequest struct {
	Kind            LineItemKind `json:"kind" validate:"required,oneof=product service"`
	Name            string       `json:"name" validate:"required,max=200"`
	SKU             string       `json:"sku" validate:"max=60"`
	Quantity        float64      `json:"quantity" validate:"gte=0"`
	UnitPrice       float64      `json:"unit_price" validate:"gte=0"`
	DiscountPercent float64      `json:"discount_percent" validate:"gte=0,lte=100"`
	LineOrder       int          `json:"line_order" validate:"gte=0"`
}

type CreateQuotationRequest struct {
	ClientID       int64             `json:"client_id" validate:"required,gt=0"`
	QuoteDate      time.Time         `json:"quote_date" validate:"required"`
	DueAt          time.Time         `json:"due_at" validate:"required"`
	Currency       string            `json:"currency" validate:"required,len=3"`
	TaxRatePercent float64           `json:"tax_rate_percent" validate:"gte=0"`
	FreightFlat    float64           `json:"freight_flat" validate:"gte=0"`
	Notes          *string           `json:"notes,omitempty"`
	Lines          []LineItemRequest `json:"lines" validate:"dive"`
}

type UpdateQuotationRequest struct {
	QuoteDate      *time.Time         `json:"quote_date,omitempty"`
	DueAt          *time.Time         `json:"due_at,omitempty"`
	TaxRatePercent *float64           `json:"tax_rate_percent,omitempty" validate:"omitempty,gte=0"`
	FreightFlat    *float64           `json:"freight_flat,omitempty" validate:"omitempty,gte=0"`
	Notes          *string            `json:"notes,omitempty"`
	Lines          *[]LineItemRequest `json:"lines,omitempty" validate:"omitempty,dive"`
	ChangeNote     string             `json:"change_note" validate:"max=500"`
}

type TransitionRequest struct {
	Status     QuotationStatus `json:"status" validate:"required"`
	ChangeNote string          `json:"change_note" validate:"max=500"`
}

type ListQuotationsRequest struct {
	ClientID *int64           `json:"client_id,omitempty"`
	Status   *QuotationStatus `json:"status,omitempty"`
	DateFrom *time.Time       `json:"date_from,omitempty"`
	DateTo   *time.Time       `json:"date_to,omitempty"`
	Limit    int              `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int              `json:"offset" validate:"gte=0"`
}
