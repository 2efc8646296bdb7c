package clients

import "time"

// Lifecycle distinguishes prospects from paying clients.
type Lifecycle string

const (
	LifecycleProspect Lifecycle = "prospect"
	LifecycleClient   Lifecycle = "client"
)

// Client is a company the sales team quotes to.
type Client struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	TaxID       string     `json:"tax_id" db:"tax_id"`
	Email       string     `json:"email" db:"email"`
	Phone       string     `json:"phone" db:"phone"`
	City        string     `json:"city" db:"city"`
	Lifecycle   Lifecycle  `json:"lifecycle" db:"lifecycle"`
	ConvertedAt *time.Time `json:"converted_at,omitempty" db:"converted_at"`
	Notes       *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type UpsertClientRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	TaxID string  `json:"tax_id" validate:"max=20"`
	Email string  `json:"email" validate:"omitempty,email"`
	Phone string  `json:"phone" validate:"max=30"`
	City  string  `json:"city" validate:"max=100"`
	Notes *string `json:"notes,omitempty"`
}

type ListClientsRequest struct {
	Search    string     `json:"search"`
	Lifecycle *Lifecycle `json:"lifecycle,omitempty"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
