package pipeline

import (
	"strconv"
	"strings"
	"testing"
)

func TestBuildReceiptPrompt_ListsEveryCategory(t *testing.T) {
	tax := DefaultTaxonomy()
	prompt := BuildReceiptPrompt(tax)

	for _, c := range tax.All() {
		if !strings.Contains(prompt, strconv.Quote(c)) {
			t.Errorf("prompt does not list category %q", c)
		}
	}
}

func TestBuildReceiptPrompt_ListsEveryField(t *testing.T) {
	prompt := BuildReceiptPrompt(DefaultTaxonomy())

	fields := []string{
		"merchant_name", "merchant_address", "vat_id", "transaction_date",
		"transaction_time", "currency", "receipt_number", "items", "subtotal",
		"tax_details", "total_tax_amount", "total_amount",
		"description", "category", "quantity", "unit", "unit_price",
		"total_price", "vat_rate",
		"vat_percent", "net_amount", "tax_amount", "gross_amount",
	}
	for _, f := range fields {
		if !strings.Contains(prompt, `"`+f+`"`) {
			t.Errorf("prompt does not describe field %q", f)
		}
	}
	if !strings.Contains(prompt, "JSON object") {
		t.Error("prompt must ask for a JSON object")
	}
}

func TestReceiptExample_IsCleanUnderCoercion(t *testing.T) {
	v, err := ParseValue(receiptExample)
	if err != nil {
		t.Fatalf("example does not parse: %v", err)
	}
	r, warnings, err := Coerce(v, "example")
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("example uses categories outside the taxonomy: %v", warnings)
	}
	if len(r.Items) != 4 || len(r.TaxDetails) != 2 {
		t.Errorf("items = %d, tax details = %d, want 4 and 2", len(r.Items), len(r.TaxDetails))
	}
}
