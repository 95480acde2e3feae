package domain

// DefaultCategory is the catch-all category assigned to line items whose
// category is missing or not part of the taxonomy.
const DefaultCategory = "Sonstiges / Unkategorisiert"

// Receipt is the structured record extracted from one scanned purchase document.
// Every field is always populated after coercion; unknown model fields are dropped.
type Receipt struct {
	MerchantName    string `json:"merchant_name"`
	MerchantAddress string `json:"merchant_address"`
	VATID           string `json:"vat_id"`
	TransactionDate string `json:"transaction_date"` // YYYY-MM-DD
	TransactionTime string `json:"transaction_time"` // HH:MM
	Currency        string `json:"currency"`
	ReceiptNumber   string `json:"receipt_number"`

	Items []LineItem `json:"items"`

	Subtotal       *float64       `json:"subtotal"`
	TaxDetails     []TaxBreakdown `json:"tax_details"`
	TotalTaxAmount *float64       `json:"total_tax_amount"`
	TotalAmount    *float64       `json:"total_amount"`
}

// LineItem is one purchased article. Category is always a taxonomy member.
type LineItem struct {
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Quantity    *float64 `json:"quantity"` // 1 when the model omits it
	Unit        string   `json:"unit"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
	VATRate     *float64 `json:"vat_rate"`
}

// TaxBreakdown is one VAT rate line printed on the receipt.
type TaxBreakdown struct {
	VATPercent  *float64 `json:"vat_percent"`
	NetAmount   *float64 `json:"net_amount"`
	TaxAmount   *float64 `json:"tax_amount"`
	GrossAmount *float64 `json:"gross_amount"`
}

// NewReceipt returns a Receipt holding the schema defaults.
func NewReceipt() Receipt {
	return Receipt{
		Items:      []LineItem{},
		TaxDetails: []TaxBreakdown{},
	}
}

// NewLineItem returns a LineItem holding the schema defaults.
func NewLineItem() LineItem {
	return LineItem{
		Category: DefaultCategory,
		Quantity: Float(1),
	}
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}
