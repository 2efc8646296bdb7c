package quotes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSnapshotCapturesState(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	q := &Quotation{
		ID:            42,
		DocNumber:     "COT-2503-0042",
		DueAt:         at.AddDate(0, 0, 15),
		Status:        StatusSent,
		GrandTotal:    12764.50,
		VersionNumber: 3,
	}

	v := NewSnapshot(q, "Laura Mendoza", "Enviada tras revisión", at)

	assert.Equal(t, int64(42), v.QuotationID)
	assert.Equal(t, 3, v.VersionNumber)
	assert.Equal(t, at, v.CreatedAt)
	assert.Equal(t, q.DueAt, v.DueAt)
	assert.Equal(t, "Laura Mendoza", v.Owner)
	assert.Equal(t, StatusSent, v.Status)
	assert.Equal(t, 12764.50, v.Total)
	assert.Equal(t, "Enviada tras revisión", v.ChangeNote)
}

func TestNewSnapshotDefaultNote(t *testing.T) {
	q := &Quotation{DocNumber: "COT-2503-0007"}
	v := NewSnapshot(q, "Laura Mendoza", "", time.Now())

	assert.Equal(t, "Actualización de la cotización COT-2503-0007", v.ChangeNote)
}

func TestSortHistoryNewestFirstWithoutMutating(t *testing.T) {
	input := []QuotationVersion{
		{VersionNumber: 1},
		{VersionNumber: 3},
		{VersionNumber: 2},
	}

	sorted := SortHistory(input)

	assert.Equal(t, 3, sorted[0].VersionNumber)
	assert.Equal(t, 2, sorted[1].VersionNumber)
	assert.Equal(t, 1, sorted[2].VersionNumber)
	// the caller's slice keeps its original order
	assert.Equal(t, 1, input[0].VersionNumber)
	assert.Equal(t, 3, input[1].VersionNumber)
}
