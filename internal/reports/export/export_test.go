package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acero-crm/acero-crm/internal/reports"
)

func sampleDashboard() reports.Dashboard {
	return reports.Dashboard{
		GeneratedAt: time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC),
		Summary: reports.KPISummary{
			OpenQuotes:        4,
			QuotedThisMonth:   125000,
			AcceptedThisMonth: 48000,
			AcceptanceRate:    0.4,
			PipelineValue:     310000,
			InvoicedThisMonth: 52000,
			ActiveClients:     11,
		},
		Trend: []reports.MonthlyQuoteTotal{
			{Period: "2025-02", Count: 5, Total: 98000},
			{Period: "2025-03", Count: 3, Total: 125000},
		},
		TopClients: []reports.TopClient{
			{ClientID: 7, Name: "Aceros <del> Norte", Accepted: 96000},
		},
	}
}

func TestWriteDashboardCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDashboardCSV(&buf, sampleDashboard()))

	out := buf.String()
	assert.Contains(t, out, "Indicador,Valor")
	assert.Contains(t, out, "Cotizaciones abiertas,4")
	assert.Contains(t, out, "2025-03,3")
	assert.Contains(t, out, "Aceros <del> Norte")
}

func TestBuildDashboardHTMLEscapes(t *testing.T) {
	html := buildDashboardHTML(sampleDashboard())

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "Tablero de ventas")
	assert.Contains(t, html, "Aceros &lt;del&gt; Norte")
	assert.NotContains(t, html, "<del>")
}
