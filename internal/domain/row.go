package domain

// Header is the fixed column order of the expenses worksheet.
var Header = []string{
	"Timestamp Added",
	"Receipt Date",
	"Receipt Time",
	"Store Name",
	"Receipt Number",
	"Receipt Total Amount",
	"Currency",
	"Item Category",
	"Item Description",
	"Item Quantity",
	"Item Unit",
	"Item Unit Price",
	"Item Total Price",
	"Item VAT Rate",
	"Filename",
	"Receipt VAT ID",
	"Receipt Address",
	"Receipt Subtotal",
	"Receipt Total Tax Amount",
}

// Row is one persisted line item: receipt metadata merged with a single item.
// Rows are created once at write time and never updated by this system.
type Row struct {
	TimestampAdded string
	ReceiptDate    string
	ReceiptTime    string
	StoreName      string
	ReceiptNumber  string
	ReceiptTotal   *float64
	Currency       string

	ItemCategory    string
	ItemDescription string
	ItemQuantity    *float64
	ItemUnit        string
	ItemUnitPrice   *float64
	ItemTotalPrice  *float64
	ItemVATRate     *float64

	Filename       string
	VATID          string
	Address        string
	Subtotal       *float64
	TotalTaxAmount *float64
}

// Cells renders the row in Header order. Null numbers become empty strings so
// the store writes a native empty cell.
func (r Row) Cells() []any {
	return []any{
		r.TimestampAdded,
		r.ReceiptDate,
		r.ReceiptTime,
		r.StoreName,
		r.ReceiptNumber,
		cell(r.ReceiptTotal),
		r.Currency,
		r.ItemCategory,
		r.ItemDescription,
		cell(r.ItemQuantity),
		r.ItemUnit,
		cell(r.ItemUnitPrice),
		cell(r.ItemTotalPrice),
		cell(r.ItemVATRate),
		r.Filename,
		r.VATID,
		r.Address,
		cell(r.Subtotal),
		cell(r.TotalTaxAmount),
	}
}

func cell(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

// RowsToCells converts rows into the matrix handed to the store.
func RowsToCells(rows []Row) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Cells())
	}
	return out
}
