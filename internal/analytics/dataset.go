// Package analytics aggregates persisted expense rows into the dashboard views.
package analytics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// dateLayouts are tried in order when a receipt date arrives as text.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM"}

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = civil.Date{Year: 1899, Month: time.December, Day: 30}

// Item is one persisted row after typing and cleanup.
type Item struct {
	Date          civil.Date `json:"date"`
	Time          string     `json:"time"`
	Hour          int        `json:"hour"`
	HasHour       bool       `json:"-"`
	Store         string     `json:"store"`
	ReceiptNumber string     `json:"receipt_number"`
	Currency      string     `json:"currency"`
	Category      string     `json:"category"`
	Description   string     `json:"description"`
	Unit          string     `json:"unit"`
	Filename      string     `json:"filename"`

	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	ReceiptTotal decimal.Decimal `json:"receipt_total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TotalTax     decimal.Decimal `json:"total_tax"`
}

// Dataset is the typed worksheet content. Dropped counts rows discarded
// because their receipt date could not be parsed.
type Dataset struct {
	Items   []Item
	Dropped int
}

// Range is an inclusive date interval. A zero bound is open.
type Range struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// Contains reports whether d lies inside the range.
func (r Range) Contains(d civil.Date) bool {
	if r.Start.IsValid() && d.Before(r.Start) {
		return false
	}
	if r.End.IsValid() && d.After(r.End) {
		return false
	}
	return true
}

// Days returns the number of calendar days covered, or 0 when a bound is open.
func (r Range) Days() int {
	if !r.Start.IsValid() || !r.End.IsValid() || r.End.Before(r.Start) {
		return 0
	}
	return r.End.DaysSince(r.Start) + 1
}

// ParseRange parses optional YYYY-MM-DD bounds. Empty strings stay open.
func ParseRange(start, end string) (Range, error) {
	var r Range
	var err error
	if start != "" {
		if r.Start, err = civil.ParseDate(start); err != nil {
			return Range{}, fmt.Errorf("ParseRange: start: %w", err)
		}
	}
	if end != "" {
		if r.End, err = civil.ParseDate(end); err != nil {
			return Range{}, fmt.Errorf("ParseRange: end: %w", err)
		}
	}
	if r.Start.IsValid() && r.End.IsValid() && r.End.Before(r.Start) {
		return Range{}, fmt.Errorf("ParseRange: start %s is after end %s", r.Start, r.End)
	}
	return r, nil
}

// Load types a raw table whose first row is the header. Columns are located by
// header name, so reordered or extra columns are tolerated.
func Load(values [][]any) Dataset {
	ds := Dataset{Items: []Item{}}
	if len(values) == 0 {
		return ds
	}

	index := make(map[string]int, len(values[0]))
	for i, h := range values[0] {
		index[strings.TrimSpace(toString(h))] = i
	}
	col := func(row []any, name string) any {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	for _, row := range values[1:] {
		if len(row) == 0 {
			continue
		}
		date, ok := parseDate(col(row, "Receipt Date"))
		if !ok {
			ds.Dropped++
			continue
		}

		it := Item{
			Date:          date,
			Time:          strings.TrimSpace(toString(col(row, "Receipt Time"))),
			Store:         strings.TrimSpace(toString(col(row, "Store Name"))),
			ReceiptNumber: strings.TrimSpace(toString(col(row, "Receipt Number"))),
			Currency:      strings.TrimSpace(toString(col(row, "Currency"))),
			Category:      strings.TrimSpace(toString(col(row, "Item Category"))),
			Description:   strings.TrimSpace(toString(col(row, "Item Description"))),
			Unit:          strings.TrimSpace(toString(col(row, "Item Unit"))),
			Filename:      strings.TrimSpace(toString(col(row, "Filename"))),
			Quantity:      toDecimal(col(row, "Item Quantity")),
			UnitPrice:     toDecimal(col(row, "Item Unit Price")),
			TotalPrice:    toDecimal(col(row, "Item Total Price")),
			VATRate:       toDecimal(col(row, "Item VAT Rate")),
			ReceiptTotal:  toDecimal(col(row, "Receipt Total Amount")),
			Subtotal:      toDecimal(col(row, "Receipt Subtotal")),
			TotalTax:      toDecimal(col(row, "Receipt Total Tax Amount")),
		}
		if it.Category == "" {
			it.Category = domain.DefaultCategory
		}
		if h, ok := parseHour(it.Time); ok {
			it.Hour, it.HasHour = h, true
		}
		ds.Items = append(ds.Items, it)
	}
	return ds
}

// Bounds returns the earliest and latest receipt date in the dataset.
func (d Dataset) Bounds() Range {
	var r Range
	for _, it := range d.Items {
		if !r.Start.IsValid() || it.Date.Before(r.Start) {
			r.Start = it.Date
		}
		if !r.End.IsValid() || it.Date.After(r.End) {
			r.End = it.Date
		}
	}
	return r
}

// Filter keeps the items whose receipt date falls inside r.
func (d Dataset) Filter(r Range) Dataset {
	out := Dataset{Items: make([]Item, 0, len(d.Items)), Dropped: d.Dropped}
	for _, it := range d.Items {
		if r.Contains(it.Date) {
			out.Items = append(out.Items, it)
		}
	}
	return out
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// toDecimal reads a numeric cell. Empty or unparsable cells count as zero.
func toDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero
		}
		if !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func parseDate(v any) (civil.Date, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return civil.Date{}, false
		}
		return sheetsEpoch.AddDays(int(t)), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return civil.Date{}, false
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return civil.DateOf(ts), true
			}
		}
	}
	return civil.Date{}, false
}

func parseHour(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Hour(), true
		}
	}
	return 0, false
}
