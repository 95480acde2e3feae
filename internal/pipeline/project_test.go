package pipeline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

func TestProject_ZeroItemsZeroRows(t *testing.T) {
	r := domain.NewReceipt()
	r.MerchantName = "Empty"
	if rows := Project("e.jpg", r, time.Now()); len(rows) != 0 {
		t.Errorf("rows = %d, want 0", len(rows))
	}
}

func TestProject_CopiesMetadataIntoEveryRow(t *testing.T) {
	r := domain.Receipt{
		MerchantName:    "Markt",
		MerchantAddress: "Weg 1",
		VATID:           "DE1",
		TransactionDate: "2024-01-15",
		TransactionTime: "10:05",
		Currency:        "EUR",
		ReceiptNumber:   "R-1",
		Subtotal:        domain.Float(3.5),
		TotalTaxAmount:  nil,
		TotalAmount:     domain.Float(3.5),
		Items: []domain.LineItem{
			{Description: "A", Category: "Geschenke", Quantity: domain.Float(1), TotalPrice: domain.Float(1.5)},
			{Description: "B", Category: domain.DefaultCategory, Quantity: domain.Float(2), UnitPrice: domain.Float(1), TotalPrice: domain.Float(2)},
		},
	}
	now := time.Date(2024, 1, 16, 8, 30, 5, 0, time.UTC)

	rows := Project("scan.jpg", r, now)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	want := domain.Row{
		TimestampAdded:  "2024-01-16 08:30:05",
		ReceiptDate:     "2024-01-15",
		ReceiptTime:     "10:05",
		StoreName:       "Markt",
		ReceiptNumber:   "R-1",
		ReceiptTotal:    domain.Float(3.5),
		Currency:        "EUR",
		ItemCategory:    domain.DefaultCategory,
		ItemDescription: "B",
		ItemQuantity:    domain.Float(2),
		ItemUnitPrice:   domain.Float(1),
		ItemTotalPrice:  domain.Float(2),
		Filename:        "scan.jpg",
		VATID:           "DE1",
		Address:         "Weg 1",
		Subtotal:        domain.Float(3.5),
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	cells := rows[0].Cells()
	if len(cells) != len(domain.Header) {
		t.Fatalf("cells = %d, want %d", len(cells), len(domain.Header))
	}
	if cells[18] != "" {
		t.Errorf("null total tax cell = %#v, want empty string", cells[18])
	}
	if cells[7] != "Geschenke" || cells[8] != "A" {
		t.Errorf("category/description cells = %v, %v", cells[7], cells[8])
	}
}
