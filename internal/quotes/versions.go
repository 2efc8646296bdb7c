package quotes

import (
	"fmt"
	"sort"
	"time"
)

// NewSnapshot builds the next version snapshot for a quotation. The
// snapshot captures due date, owner, status and grand total at the
// moment of the change; once persisted it is never altered.
func NewSnapshot(q *Quotation, actor, changeNote string, at time.Time) QuotationVersion {
	if changeNote == "" {
		changeNote = fmt.Sprintf("Actualización de la cotización %s", q.DocNumber)
	}
	return QuotationVersion{
		QuotationID:   q.ID,
		VersionNumber: q.VersionNumber,
		CreatedAt:     at,
		DueAt:         q.DueAt,
		Owner:         actor,
		Status:        q.Status,
		Total:         q.GrandTotal,
		ChangeNote:    changeNote,
	}
}

// SortHistory orders persisted snapshots newest-first for display.
// The input is the true append-only record; nothing is synthesized.
func SortHistory(versions []QuotationVersion) []QuotationVersion {
	sorted := make([]QuotationVersion, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VersionNumber > sorted[j].VersionNumber
	})
	return sorted
}
