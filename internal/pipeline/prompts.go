package pipeline

import (
	"strconv"
	"strings"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// receiptExample is the worked example embedded in the prompt. Every category
// in it is a taxonomy member.
const receiptExample = `{
  "merchant_name": "Beispiel Markt",
  "merchant_address": "Musterweg 1, 12345 Musterstadt",
  "vat_id": "DE123456789",
  "transaction_date": "2024-01-15",
  "transaction_time": "10:05",
  "currency": "EUR",
  "receipt_number": "R-1002",
  "items": [
    {"description": "Bio Tomaten", "category": "Lebensmittel: Gemüse (frisch)", "quantity": 0.55, "unit": "kg", "unit_price": 3.99, "total_price": 2.20, "vat_rate": 7},
    {"description": "Vollmilch 1L", "category": "Lebensmittel: Milchprodukte & Eier", "quantity": 2, "unit": "Stk", "unit_price": 1.19, "total_price": 2.38, "vat_rate": 7},
    {"description": "Duschgel Men", "category": "Drogerie: Körperpflege", "quantity": 1, "unit": "", "unit_price": null, "total_price": 1.99, "vat_rate": 19},
    {"description": "AA Batterien", "category": "Sonstiges / Unkategorisiert", "quantity": 1, "unit": "Stk", "unit_price": 3.49, "total_price": 3.49, "vat_rate": 19}
  ],
  "subtotal": 10.06,
  "tax_details": [
    {"vat_percent": 7, "net_amount": 4.28, "tax_amount": 0.30, "gross_amount": 4.58},
    {"vat_percent": 19, "net_amount": 4.61, "tax_amount": 0.87, "gross_amount": 5.48}
  ],
  "total_tax_amount": 1.17,
  "total_amount": 10.06
}`

// BuildReceiptPrompt constructs the extraction instruction sent alongside the image.
func BuildReceiptPrompt(tax Taxonomy) string {
	quoted := make([]string, 0, tax.Len())
	for _, c := range tax.All() {
		quoted = append(quoted, strconv.Quote(c))
	}

	var b strings.Builder
	b.WriteString("Analyze this receipt or invoice VERY CAREFULLY. Extract the information AND assign a category to EVERY item.\n")
	b.WriteString("Return the result EXCLUSIVELY as a single valid JSON object. No Markdown, no code fences, no extra text.\n\n")

	b.WriteString("IMPORTANT: The JSON object MUST ALWAYS contain ALL top-level fields listed below.\n")
	b.WriteString("If a value cannot be found, use null for numbers and \"\" for strings.\n")
	b.WriteString("EVERY item MUST be assigned a category.\n\n")

	b.WriteString("Allowed item categories are ONLY the following: ")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(".\n")
	b.WriteString("Use \"" + domain.DefaultCategory + "\" when no other category fits.\n\n")

	b.WriteString("Fields:\n")
	b.WriteString("- \"merchant_name\": string.\n")
	b.WriteString("- \"merchant_address\": string, \"\" if not present.\n")
	b.WriteString("- \"vat_id\": string, \"\" if not present.\n")
	b.WriteString("- \"transaction_date\": string, YYYY-MM-DD.\n")
	b.WriteString("- \"transaction_time\": string, HH:MM, \"\" if not present.\n")
	b.WriteString("- \"currency\": string, ISO code such as \"EUR\".\n")
	b.WriteString("- \"receipt_number\": string, \"\" if not present.\n")
	b.WriteString("- \"items\": list of objects, one per purchased article ([] if none are recognized):\n")
	b.WriteString("    - \"description\": string.\n")
	b.WriteString("    - \"category\": string, one of the allowed categories above.\n")
	b.WriteString("    - \"quantity\": number, default 1.\n")
	b.WriteString("    - \"unit\": string, \"\" if not present.\n")
	b.WriteString("    - \"unit_price\": number, null if not present.\n")
	b.WriteString("    - \"total_price\": number.\n")
	b.WriteString("    - \"vat_rate\": number, null if not present.\n")
	b.WriteString("- \"subtotal\": number, null if not present.\n")
	b.WriteString("- \"tax_details\": list of objects ([] if not present):\n")
	b.WriteString("    - \"vat_percent\": number.\n")
	b.WriteString("    - \"net_amount\": number.\n")
	b.WriteString("    - \"tax_amount\": number.\n")
	b.WriteString("    - \"gross_amount\": number.\n")
	b.WriteString("- \"total_tax_amount\": number, null if not present.\n")
	b.WriteString("- \"total_amount\": number.\n\n")
	b.WriteString("DO NOT ADD ANY OTHER FIELDS.\n\n")

	b.WriteString("Example of the structure that MUST be followed:\n")
	b.WriteString(receiptExample)
	b.WriteString("\n\nHere is the receipt:\n")

	return b.String()
}
