package export

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/acero-crm/acero-crm/internal/reports"
)

// Renderer converts HTML into a PDF document.
type Renderer interface {
	RenderHTML(ctx context.Context, filename, html string) ([]byte, error)
}

// RenderDashboardPDF builds the printable dashboard and sends it to the
// renderer.
func RenderDashboardPDF(ctx context.Context, r Renderer, dash reports.Dashboard) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("pdf renderer not configured")
	}
	return r.RenderHTML(ctx, "tablero.html", buildDashboardHTML(dash))
}

func buildDashboardHTML(dash reports.Dashboard) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`)
	b.WriteString(`<style>
		body { font-family: Helvetica, Arial, sans-serif; color: #1a1a1a; margin: 32px; }
		h1 { font-size: 20px; border-bottom: 2px solid #b45309; padding-bottom: 8px; }
		h2 { font-size: 14px; margin-top: 24px; }
		table { border-collapse: collapse; width: 100%; font-size: 12px; }
		th, td { border: 1px solid #d4d4d4; padding: 6px 10px; text-align: left; }
		th { background: #f5f5f4; }
		td.num { text-align: right; }
	</style></head><body>`)

	b.WriteString(`<h1>Tablero de ventas</h1>`)
	fmt.Fprintf(&b, `<p>Generado: %s</p>`, dash.GeneratedAt.Format("2006-01-02 15:04"))

	b.WriteString(`<h2>Indicadores</h2><table>`)
	writeRow(&b, "Cotizaciones abiertas", fmt.Sprintf("%d", dash.Summary.OpenQuotes))
	writeRow(&b, "Monto cotizado del mes", formatAmount(dash.Summary.QuotedThisMonth))
	writeRow(&b, "Monto aceptado del mes", formatAmount(dash.Summary.AcceptedThisMonth))
	writeRow(&b, "Tasa de aceptación", formatPercent(dash.Summary.AcceptanceRate))
	writeRow(&b, "Valor del pipeline", formatAmount(dash.Summary.PipelineValue))
	writeRow(&b, "Facturado del mes", formatAmount(dash.Summary.InvoicedThisMonth))
	b.WriteString(`</table>`)

	b.WriteString(`<h2>Cotizado por mes</h2><table><tr><th>Mes</th><th>Cotizaciones</th><th>Monto</th></tr>`)
	for _, point := range dash.Trend {
		fmt.Fprintf(&b, `<tr><td>%s</td><td class="num">%d</td><td class="num">%s</td></tr>`,
			html.EscapeString(point.Period), point.Count, formatAmount(point.Total))
	}
	b.WriteString(`</table>`)

	b.WriteString(`<h2>Mejores clientes</h2><table><tr><th>Cliente</th><th>Monto aceptado</th></tr>`)
	for _, client := range dash.TopClients {
		fmt.Fprintf(&b, `<tr><td>%s</td><td class="num">%s</td></tr>`,
			html.EscapeString(client.Name), formatAmount(client.Accepted))
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, `<tr><th>%s</th><td class="num">%s</td></tr>`, html.EscapeString(label), value)
}
