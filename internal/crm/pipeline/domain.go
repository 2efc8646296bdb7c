package pipeline

import "time"

// Stage is a column on the sales board.
type Stage string

const (
	StageLead        Stage = "lead"
	StageContacted   Stage = "contacted"
	StageQuoted      Stage = "quoted"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

// stageFlow lists the legal moves out of each stage. A deal can be
// lost from any open stage; won only out of negotiation.
var stageFlow = map[Stage][]Stage{
	StageLead:        {StageContacted, StageLost},
	StageContacted:   {StageQuoted, StageLost},
	StageQuoted:      {StageNegotiation, StageLost},
	StageNegotiation: {StageWon, StageLost},
	StageWon:         {},
	StageLost:        {},
}

// BoardOrder is the fixed column order for the kanban view.
func BoardOrder() []Stage {
	return []Stage{StageLead, StageContacted, StageQuoted, StageNegotiation, StageWon, StageLost}
}

func (s Stage) CanMoveTo(target Stage) bool {
	for _, allowed := range stageFlow[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s Stage) Valid() bool {
	_, ok := stageFlow[s]
	return ok
}

// Closed reports whether the deal has left the active pipeline.
func (s Stage) Closed() bool {
	return s == StageWon || s == StageLost
}

// Deal is one opportunity moving across the board.
type Deal struct {
	ID             int64      `json:"id" db:"id"`
	ClientID       int64      `json:"client_id" db:"client_id"`
	Title          string     `json:"title" db:"title"`
	Stage          Stage      `json:"stage" db:"stage"`
	EstimatedValue float64    `json:"estimated_value" db:"estimated_value"`
	QuotationID    *int64     `json:"quotation_id,omitempty" db:"quotation_id"`
	ExpectedClose  *time.Time `json:"expected_close,omitempty" db:"expected_close"`
	ClosedAt       *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreatedBy      int64      `json:"created_by" db:"created_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// DealWithClient joins board cards with the client display name.
type DealWithClient struct {
	Deal
	ClientName string `json:"client_name" db:"client_name"`
}

// BoardColumn groups the deals shown under one stage.
type BoardColumn struct {
	Stage Stage            `json:"stage"`
	Deals []DealWithClient `json:"deals"`
	Value float64          `json:"value"`
}

type CreateDealRequest struct {
	ClientID       int64      `json:"client_id" validate:"required,gt=0"`
	Title          string     `json:"title" validate:"required,max=200"`
	EstimatedValue float64    `json:"estimated_value" validate:"gte=0"`
	ExpectedClose  *time.Time `json:"expected_close,omitempty"`
}

type UpdateDealRequest struct {
	Title          *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	EstimatedValue *float64   `json:"estimated_value,omitempty" validate:"omitempty,gte=0"`
	QuotationID    *int64     `json:"quotation_id,omitempty"`
	ExpectedClose  *time.Time `json:"expected_close,omitempty"`
}

type MoveDealRequest struct {
	Stage Stage `json:"stage" validate:"required"`
}
