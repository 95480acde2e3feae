package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// Coercer turns arbitrary model output into a well-typed domain.Receipt.
type Coercer struct {
	Taxonomy Taxonomy
}

// NewCoercer returns a Coercer validating categories against tax.
func NewCoercer(tax Taxonomy) *Coercer {
	return &Coercer{Taxonomy: tax}
}

// Coerce runs the default-taxonomy coercion.
func Coerce(v Value, filename string) (domain.Receipt, []Warning, error) {
	return NewCoercer(DefaultTaxonomy()).Coerce(v, filename)
}

// Coerce fills missing fields with defaults, drops unknown keys and replaces
// categories outside the taxonomy with the catch-all. A root that is not an
// object is returned as ErrNotObject; nothing else fails.
func (c *Coercer) Coerce(v Value, filename string) (domain.Receipt, []Warning, error) {
	if v.Kind != KindObject {
		return domain.Receipt{}, nil, ErrNotObject
	}

	r := domain.NewReceipt()
	r.MerchantName = stringField(v, "merchant_name")
	r.MerchantAddress = stringField(v, "merchant_address")
	r.VATID = stringField(v, "vat_id")
	r.TransactionDate = stringField(v, "transaction_date")
	r.TransactionTime = stringField(v, "transaction_time")
	r.Currency = stringField(v, "currency")
	r.ReceiptNumber = stringField(v, "receipt_number")
	r.Subtotal = numberField(v, "subtotal")
	r.TotalTaxAmount = numberField(v, "total_tax_amount")
	r.TotalAmount = numberField(v, "total_amount")

	var warnings []Warning
	for _, raw := range objectElements(v, "items") {
		item, warn := c.coerceItem(raw, filename)
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		r.Items = append(r.Items, item)
	}

	for _, raw := range objectElements(v, "tax_details") {
		r.TaxDetails = append(r.TaxDetails, domain.TaxBreakdown{
			VATPercent:  numberField(raw, "vat_percent"),
			NetAmount:   numberField(raw, "net_amount"),
			TaxAmount:   numberField(raw, "tax_amount"),
			GrossAmount: numberField(raw, "gross_amount"),
		})
	}

	return r, warnings, nil
}

func (c *Coercer) coerceItem(raw Value, filename string) (domain.LineItem, *Warning) {
	item := domain.NewLineItem()
	item.Description = stringField(raw, "description")
	item.Unit = stringField(raw, "unit")
	item.UnitPrice = numberField(raw, "unit_price")
	item.TotalPrice = numberField(raw, "total_price")
	item.VATRate = numberField(raw, "vat_rate")
	if q, ok := raw.Get("quantity"); ok {
		item.Quantity = toNumber(q)
	}

	cat, ok := raw.Get("category")
	if !ok {
		return item, nil
	}
	if cat.Kind == KindString && c.Taxonomy.Contains(cat.String) {
		item.Category = cat.String
		return item, nil
	}
	return item, &Warning{
		Filename:    filename,
		Description: item.Description,
		Category:    displayValue(cat),
	}
}

// objectElements returns the object elements of the array under key. A missing
// key or a non-array value yields nothing; non-object elements are skipped.
func objectElements(v Value, key string) []Value {
	arr, ok := v.Get(key)
	if !ok || arr.Kind != KindArray {
		return nil
	}
	out := make([]Value, 0, len(arr.Items))
	for _, el := range arr.Items {
		if el.Kind == KindObject {
			out = append(out, el)
		}
	}
	return out
}

func stringField(v Value, key string) string {
	f, ok := v.Get(key)
	if !ok {
		return ""
	}
	switch f.Kind {
	case KindString:
		return f.String
	case KindNumber:
		return strconv.FormatFloat(f.Number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(f.Bool)
	default:
		return ""
	}
}

func numberField(v Value, key string) *float64 {
	f, ok := v.Get(key)
	if !ok {
		return nil
	}
	return toNumber(f)
}

// toNumber keeps numbers, parses numeric strings and maps everything else to null.
func toNumber(v Value) *float64 {
	switch v.Kind {
	case KindNumber:
		return domain.Float(v.Number)
	case KindBool:
		if v.Bool {
			return domain.Float(1)
		}
		return domain.Float(0)
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return domain.Float(f)
	default:
		return nil
	}
}

func displayValue(v Value) string {
	switch v.Kind {
	case KindString:
		return v.String
	case KindNull:
		return "null"
	default:
		return v.Kind.String()
	}
}
