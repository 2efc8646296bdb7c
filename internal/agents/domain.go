package agents

import "time"

// Status is the last observed availability of a digital employee.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// Agent is a configured digital employee: an external automation
// reachable through a webhook that the CRM can hand work to.
type Agent struct {
	ID            int64      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Slug          string     `json:"slug" db:"slug"`
	Description   string     `json:"description" db:"description"`
	WebhookURL    string     `json:"webhook_url" db:"webhook_url"`
	IsEnabled     bool       `json:"is_enabled" db:"is_enabled"`
	LastStatus    Status     `json:"last_status" db:"last_status"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type UpsertAgentRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Slug        string `json:"slug" validate:"required,max=60,lowercase"`
	Description string `json:"description" validate:"max=500"`
	WebhookURL  string `json:"webhook_url" validate:"required,url"`
	IsEnabled   *bool  `json:"is_enabled,omitempty"`
}
