package catalog

import "time"

// ItemKind mirrors the quotation line kinds: steel products priced per
// unit of measure, services priced per hour or per job.
type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindService ItemKind = "service"
)

// Item is a sellable catalog entry.
type Item struct {
	ID        int64     `json:"id" db:"id"`
	SKU       string    `json:"sku" db:"sku"`
	Name      string    `json:"name" db:"name"`
	Kind      ItemKind  `json:"kind" db:"kind"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	UOM       string    `json:"uom" db:"uom"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type UpsertItemRequest struct {
	SKU       string   `json:"sku" validate:"required,max=60"`
	Name      string   `json:"name" validate:"required,max=200"`
	Kind      ItemKind `json:"kind" validate:"required,oneof=product service"`
	UnitPrice float64  `json:"unit_price" validate:"gte=0"`
	UOM       string   `json:"uom" validate:"required,max=20"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

type ListItemsRequest struct {
	Search     string    `json:"search"`
	Kind       *ItemKind `json:"kind,omitempty"`
	OnlyActive bool      `json:"only_active"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}
