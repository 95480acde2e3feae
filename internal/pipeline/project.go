package pipeline

import (
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// Project flattens a receipt into one row per line item. Receipt metadata is
// copied verbatim into every row; a receipt without items yields no rows.
func Project(filename string, r domain.Receipt, now time.Time) []domain.Row {
	if len(r.Items) == 0 {
		return nil
	}

	ts := now.Format(TimestampLayout)
	rows := make([]domain.Row, 0, len(r.Items))
	for _, item := range r.Items {
		rows = append(rows, domain.Row{
			TimestampAdded:  ts,
			ReceiptDate:     r.TransactionDate,
			ReceiptTime:     r.TransactionTime,
			StoreName:       r.MerchantName,
			ReceiptNumber:   r.ReceiptNumber,
			ReceiptTotal:    r.TotalAmount,
			Currency:        r.Currency,
			ItemCategory:    item.Category,
			ItemDescription: item.Description,
			ItemQuantity:    item.Quantity,
			ItemUnit:        item.Unit,
			ItemUnitPrice:   item.UnitPrice,
			ItemTotalPrice:  item.TotalPrice,
			ItemVATRate:     item.VATRate,
			Filename:        filename,
			VATID:           r.VATID,
			Address:         r.MerchantAddress,
			Subtotal:        r.Subtotal,
			TotalTaxAmount:  r.TotalTaxAmount,
		})
	}
	return rows
}
