package reports

import "time"

// KPISummary holds the headline figures for the sales dashboard.
type KPISummary struct {
	OpenQuotes        int     `json:"open_quotes"`
	QuotedThisMonth   float64 `json:"quoted_this_month"`
	AcceptedThisMonth float64 `json:"accepted_this_month"`
	AcceptanceRate    float64 `json:"acceptance_rate"`
	PipelineValue     float64 `json:"pipeline_value"`
	InvoicedThisMonth float64 `json:"invoiced_this_month"`
	ActiveClients     int     `json:"active_clients"`
}

// StatusCount is one slice of the quote status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MonthlyQuoteTotal is one point on the quoted-amount trend.
type MonthlyQuoteTotal struct {
	Period string  `json:"period"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

// TopClient ranks clients by accepted quote value.
type TopClient struct {
	ClientID int64   `json:"client_id"`
	Name     string  `json:"name"`
	Accepted float64 `json:"accepted"`
}

// Dashboard is the composite payload the frontend renders.
type Dashboard struct {
	GeneratedAt     time.Time           `json:"generated_at"`
	Summary         KPISummary          `json:"summary"`
	StatusBreakdown []StatusCount       `json:"status_breakdown"`
	Trend           []MonthlyQuoteTotal `json:"trend"`
	TopClients      []TopClient         `json:"top_clients"`
}

// Filter bounds the dashboard window.
type Filter struct {
	TrendMonths int `json:"trend_months"`
	TopClients  int `json:"top_clients"`
}

// Normalize clamps the filter to sane bounds.
func (f Filter) Normalize() Filter {
	if f.TrendMonths <= 0 || f.TrendMonths > 24 {
		f.TrendMonths = 6
	}
	if f.TopClients <= 0 || f.TopClients > 20 {
		f.TopClients = 5
	}
	return f
}
