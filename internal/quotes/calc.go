package quotes

// Totals aggregates the derived monetary figures of a quotation.
// All fields are recomputed together; none is independently settable.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	DiscountTotal float64 `json:"discount_total"`
	TaxAmount     float64 `json:"tax_amount"`
	GrandTotal    float64 `json:"grand_total"`
}

// LineSubtotal computes the post-discount value of a single line.
func LineSubtotal(quantity, unitPrice, discountPercent float64) float64 {
	return quantity * unitPrice * (1 - discountPercent/100)
}

// ComputeTotals derives quotation totals from the line items plus the
// flat tax rate and freight charge. The computation is a single pass
// over the lines, has no side effects and produces identical output
// for identical input. Tax applies to the post-discount subtotal;
// freight is additive per quotation. Range validation of the inputs
// belongs to the request layer, not here.
func ComputeTotals(lines []LineItem, taxRatePercent, freightFlat float64) Totals {
	var subtotal, discountTotal float64
	for _, line := range lines {
		gross := line.Quantity * line.UnitPrice
		net := LineSubtotal(line.Quantity, line.UnitPrice, line.DiscountPercent)
		subtotal += net
		discountTotal += gross - net
	}
	taxAmount := subtotal * (taxRatePercent / 100)
	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		TaxAmount:     taxAmount,
		GrandTotal:    subtotal + taxAmount + freightFlat,
	}
}
