// Package export serialises dashboard data for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/acero-crm/acero-crm/internal/reports"
)

// Mexican formatting: thousands separators, two decimals.
var printer = message.NewPrinter(language.Spanish)

func formatAmount(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func formatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", v*100)
}

// WriteDashboardCSV serialises the dashboard into a flat CSV report.
func WriteDashboardCSV(w io.Writer, dash reports.Dashboard) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Indicador", "Valor"}); err != nil {
		return err
	}
	summary := [][]string{
		{"Generado", dash.GeneratedAt.Format("2006-01-02 15:04")},
		{"Cotizaciones abiertas", fmt.Sprintf("%d", dash.Summary.OpenQuotes)},
		{"Monto cotizado del mes", formatAmount(dash.Summary.QuotedThisMonth)},
		{"Monto aceptado del mes", formatAmount(dash.Summary.AcceptedThisMonth)},
		{"Tasa de aceptación", formatPercent(dash.Summary.AcceptanceRate)},
		{"Valor del pipeline", formatAmount(dash.Summary.PipelineValue)},
		{"Facturado del mes", formatAmount(dash.Summary.InvoicedThisMonth)},
		{"Clientes activos", fmt.Sprintf("%d", dash.Summary.ActiveClients)},
	}
	for _, record := range summary {
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write([]string{"Mes", "Cotizaciones", "Monto"}); err != nil {
		return err
	}
	for _, point := range dash.Trend {
		if err := writer.Write([]string{
			point.Period,
			fmt.Sprintf("%d", point.Count),
			formatAmount(point.Total),
		}); err != nil {
			return err
		}
	}

	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write([]string{"Cliente", "Monto aceptado"}); err != nil {
		return err
	}
	for _, client := range dash.TopClients {
		if err := writer.Write([]string{client.Name, formatAmount(client.Accepted)}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
