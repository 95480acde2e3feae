package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

const (
	// TopItemsLimit caps the ranked item list of a category.
	TopItemsLimit = 15

	// plausibleShare is the fraction of rows whose unit price must agree with
	// total/quantity before unit prices are trusted for price tracking.
	plausibleShare = 0.6
)

var priceTolerance = decimal.RequireFromString("0.05")

// Overview is the headline metrics block.
type Overview struct {
	Range          Range           `json:"range"`
	Days           int             `json:"days"`
	ItemCount      int             `json:"item_count"`
	ItemSpending   decimal.Decimal `json:"item_spending"`
	ReceiptCount   int             `json:"receipt_count"`
	ReceiptTotals  decimal.Decimal `json:"receipt_totals"`
	AveragePerDay  decimal.Decimal `json:"average_per_day"`
	AveragePerBill decimal.Decimal `json:"average_per_receipt"`
	DroppedRows    int             `json:"dropped_rows"`
}

// DayTotal is spending on one calendar day.
type DayTotal struct {
	Date   civil.Date      `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryTotal is spending in one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Items    int             `json:"items"`
}

// ItemTotal ranks a description inside a category.
type ItemTotal struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Purchases   int             `json:"purchases"`
}

// CategoryDetail is the deep dive into one category.
type CategoryDetail struct {
	Category  string          `json:"category"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	Quantity  decimal.Decimal `json:"quantity"`
	Trend     []DayTotal      `json:"trend"`
	TopItems  []ItemTotal     `json:"top_items"`
	Items     []Item          `json:"items"`
}

// PricePoint is one observed price of an article.
type PricePoint struct {
	Date  civil.Date      `json:"date"`
	Store string          `json:"store"`
	Price decimal.Decimal `json:"price"`
}

// StorePrice summarizes the prices of an article at one store.
type StorePrice struct {
	Store string          `json:"store"`
	Mean  decimal.Decimal `json:"mean"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
	Count int             `json:"count"`
}

// PriceField names which column a price report is based on.
type PriceField string

const (
	PriceFieldUnit  PriceField = "unit_price"
	PriceFieldTotal PriceField = "total_price"
)

// ItemPriceReport tracks the price of one article over time and across stores.
type ItemPriceReport struct {
	Description string       `json:"description"`
	Field       PriceField   `json:"field"`
	Trend       []PricePoint `json:"trend"`
	Stores      []StorePrice `json:"stores"`
}

// ReceiptSummary is one distinct receipt in the explorer list.
type ReceiptSummary struct {
	ID            string          `json:"id"`
	Date          civil.Date      `json:"date"`
	Time          string          `json:"time"`
	Store         string          `json:"store"`
	ReceiptNumber string          `json:"receipt_number"`
	Filename      string          `json:"filename"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
}

// ReceiptDetail is a receipt with its line items.
type ReceiptDetail struct {
	ReceiptSummary
	Items []Item `json:"items"`
}

// WeekdayTotal is spending on one day of the week.
type WeekdayTotal struct {
	Weekday string          `json:"weekday"`
	Amount  decimal.Decimal `json:"amount"`
}

// HourTotal is spending in one hour of the day.
type HourTotal struct {
	Hour   int             `json:"hour"`
	Amount decimal.Decimal `json:"amount"`
}

// BudgetLine compares a category budget with the month's spending.
type BudgetLine struct {
	Category  string          `json:"category"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Progress  float64         `json:"progress"`
	Over      bool            `json:"over"`
}

// BudgetReport covers the current calendar month.
type BudgetReport struct {
	Month      string          `json:"month"`
	Range      Range           `json:"range"`
	Lines      []BudgetLine    `json:"lines"`
	Unbudgeted []CategoryTotal `json:"unbudgeted"`
}

// Overview computes the headline metrics. Spending is the sum of item prices;
// receipt totals count each receipt once, identified by date, store, number
// and total. Averages per day use r when both bounds are set, else the data's
// own bounds.
func (d Dataset) Overview(r Range) Overview {
	if r.Days() == 0 {
		r = d.Bounds()
	}
	o := Overview{
		Range:         r,
		Days:          r.Days(),
		ItemCount:     len(d.Items),
		ItemSpending:  decimal.Zero,
		ReceiptTotals: decimal.Zero,
		DroppedRows:   d.Dropped,
	}

	seen := map[string]struct{}{}
	for _, it := range d.Items {
		o.ItemSpending = o.ItemSpending.Add(it.TotalPrice)
		key := fmt.Sprintf("%s|%s|%s|%s", it.Date, it.Store, it.ReceiptNumber, it.ReceiptTotal)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		o.ReceiptTotals = o.ReceiptTotals.Add(it.ReceiptTotal)
	}
	o.ReceiptCount = len(seen)

	o.AveragePerDay = average(o.ItemSpending, o.Days)
	o.AveragePerBill = average(o.ReceiptTotals, o.ReceiptCount)
	return o
}

// SpendingByDay sums item prices per receipt date, oldest first.
func (d Dataset) SpendingByDay() []DayTotal {
	return dailyTotals(d.Items)
}

// SpendingByCategory sums item prices per category, largest first. Categories
// without positive spending are left out.
func (d Dataset) SpendingByCategory() []CategoryTotal {
	return categoryTotals(d.Items, nil)
}

// Categories lists the categories present, sorted.
func (d Dataset) Categories() []string {
	return distinct(d.Items, func(it Item) string { return it.Category })
}

// Descriptions lists the item descriptions present, sorted.
func (d Dataset) Descriptions() []string {
	return distinct(d.Items, func(it Item) string { return it.Description })
}

// CategoryDetail drills into one category. ok is false when the category has
// no items in the dataset.
func (d Dataset) CategoryDetail(category string) (CategoryDetail, bool) {
	items := d.where(func(it Item) bool { return it.Category == category })
	if len(items) == 0 {
		return CategoryDetail{}, false
	}

	cd := CategoryDetail{
		Category:  category,
		Total:     decimal.Zero,
		Quantity:  decimal.Zero,
		ItemCount: len(items),
		Trend:     dailyTotals(items),
	}

	byDesc := map[string]*ItemTotal{}
	for _, it := range items {
		cd.Total = cd.Total.Add(it.TotalPrice)
		cd.Quantity = cd.Quantity.Add(it.Quantity)
		t, ok := byDesc[it.Description]
		if !ok {
			t = &ItemTotal{Description: it.Description, Amount: decimal.Zero}
			byDesc[it.Description] = t
		}
		t.Amount = t.Amount.Add(it.TotalPrice)
		t.Purchases++
	}
	for _, t := range byDesc {
		cd.TopItems = append(cd.TopItems, *t)
	}
	slices.SortFunc(cd.TopItems, func(a, b ItemTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Description, b.Description)
	})
	if len(cd.TopItems) > TopItemsLimit {
		cd.TopItems = cd.TopItems[:TopItemsLimit]
	}

	sortNewestFirst(items)
	cd.Items = items
	return cd, true
}

// ItemPrices tracks one article's price. Unit prices are used when more than
// 60% of the rows have a unit price consistent with total/quantity within a
// tolerance of 0.05; otherwise the total price is used. Only positive prices
// are reported.
func (d Dataset) ItemPrices(description string) (ItemPriceReport, bool) {
	items := d.where(func(it Item) bool { return it.Description == description })
	if len(items) == 0 {
		return ItemPriceReport{}, false
	}

	rep := ItemPriceReport{Description: description, Field: PriceFieldTotal}
	if unitPricesPlausible(items) {
		rep.Field = PriceFieldUnit
	}
	price := func(it Item) decimal.Decimal {
		if rep.Field == PriceFieldUnit {
			return it.UnitPrice
		}
		return it.TotalPrice
	}

	slices.SortStableFunc(items, func(a, b Item) int { return compareDates(a.Date, b.Date) })

	stores := map[string]*StorePrice{}
	var order []string
	sums := map[string]decimal.Decimal{}
	for _, it := range items {
		p := price(it)
		if !p.IsPositive() {
			continue
		}
		rep.Trend = append(rep.Trend, PricePoint{Date: it.Date, Store: it.Store, Price: p})

		s, ok := stores[it.Store]
		if !ok {
			s = &StorePrice{Store: it.Store, Min: p, Max: p}
			stores[it.Store] = s
			order = append(order, it.Store)
		}
		s.Min = decimal.Min(s.Min, p)
		s.Max = decimal.Max(s.Max, p)
		s.Count++
		sums[it.Store] = sums[it.Store].Add(p)
	}
	for _, name := range order {
		s := stores[name]
		s.Mean = average(sums[name], s.Count)
		rep.Stores = append(rep.Stores, *s)
	}
	slices.SortStableFunc(rep.Stores, func(a, b StorePrice) int { return a.Mean.Cmp(b.Mean) })
	return rep, true
}

func unitPricesPlausible(items []Item) bool {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice)
	}
	if !sum.IsPositive() {
		return false
	}

	plausible := 0
	for _, it := range items {
		if it.Quantity.IsZero() {
			continue
		}
		diff := it.TotalPrice.Div(it.Quantity).Sub(it.UnitPrice).Abs()
		if diff.LessThan(priceTolerance) {
			plausible++
		}
	}
	return float64(plausible)/float64(len(items)) > plausibleShare
}

// ReceiptID identifies a receipt by date, time, store, number and filename.
func ReceiptID(it Item) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s", it.Date, it.Time, it.Store, it.ReceiptNumber, it.Filename)
}

// Receipts lists distinct receipts, newest first.
func (d Dataset) Receipts() []ReceiptSummary {
	var out []ReceiptSummary
	index := map[string]int{}
	for _, it := range d.Items {
		id := ReceiptID(it)
		if i, ok := index[id]; ok {
			out[i].ItemCount++
			continue
		}
		index[id] = len(out)
		out = append(out, summarize(id, it))
	}
	slices.SortStableFunc(out, func(a, b ReceiptSummary) int { return compareDates(b.Date, a.Date) })
	return out
}

// ReceiptDetail returns the receipt with the given ID and its items.
func (d Dataset) ReceiptDetail(id string) (ReceiptDetail, bool) {
	items := d.where(func(it Item) bool { return ReceiptID(it) == id })
	if len(items) == 0 {
		return ReceiptDetail{}, false
	}
	rd := ReceiptDetail{ReceiptSummary: summarize(id, items[0]), Items: items}
	rd.ItemCount = len(items)
	return rd, true
}

func summarize(id string, it Item) ReceiptSummary {
	return ReceiptSummary{
		ID:            id,
		Date:          it.Date,
		Time:          it.Time,
		Store:         it.Store,
		ReceiptNumber: it.ReceiptNumber,
		Filename:      it.Filename,
		Total:         it.ReceiptTotal,
		ItemCount:     1,
	}
}

// SpendingByWeekday sums item prices per weekday, Monday first. Weekdays
// without items are omitted.
func (d Dataset) SpendingByWeekday() []WeekdayTotal {
	var sums [7]decimal.Decimal
	var present [7]bool
	for _, it := range d.Items {
		i := (int(it.Date.In(time.UTC).Weekday()) + 6) % 7
		sums[i] = sums[i].Add(it.TotalPrice)
		present[i] = true
	}
	var out []WeekdayTotal
	for i := range sums {
		if !present[i] {
			continue
		}
		out = append(out, WeekdayTotal{
			Weekday: time.Weekday((i + 1) % 7).String(),
			Amount:  sums[i],
		})
	}
	return out
}

// SpendingByHour sums item prices per hour of the receipt time. Fewer than two
// distinct hours is not enough data and yields nil.
func (d Dataset) SpendingByHour() []HourTotal {
	sums := map[int]decimal.Decimal{}
	for _, it := range d.Items {
		if !it.HasHour {
			continue
		}
		sums[it.Hour] = sums[it.Hour].Add(it.TotalPrice)
	}
	if len(sums) < 2 {
		return nil
	}
	out := make([]HourTotal, 0, len(sums))
	for h, amount := range sums {
		out = append(out, HourTotal{Hour: h, Amount: amount})
	}
	slices.SortFunc(out, func(a, b HourTotal) int { return cmp.Compare(a.Hour, b.Hour) })
	return out
}

// Budget compares monthly budgets with spending from the first of now's month
// up to now. It always uses the whole dataset, not a caller's date filter.
// Lines follow the order of categories; budgets missing from it are appended
// sorted by name.
func (d Dataset) Budget(budgets map[string]float64, categories []string, now time.Time) BudgetReport {
	today := civil.DateOf(now)
	month := Range{Start: civil.Date{Year: today.Year, Month: today.Month, Day: 1}, End: today}
	rep := BudgetReport{Month: now.Format("2006-01"), Range: month}

	items := d.Filter(month).Items
	spent := map[string]decimal.Decimal{}
	for _, it := range items {
		spent[it.Category] = spent[it.Category].Add(it.TotalPrice)
	}

	var names []string
	for _, c := range categories {
		if _, ok := budgets[c]; ok {
			names = append(names, c)
		}
	}
	var rest []string
	for c := range budgets {
		if !slices.Contains(names, c) {
			rest = append(rest, c)
		}
	}
	slices.Sort(rest)
	names = append(names, rest...)

	for _, c := range names {
		budget := decimal.NewFromFloat(budgets[c])
		s := spent[c]
		line := BudgetLine{
			Category:  c,
			Budget:    budget,
			Spent:     s,
			Remaining: budget.Sub(s),
			Over:      s.GreaterThan(budget),
		}
		if budget.IsPositive() {
			line.Progress = math.Min(s.Div(budget).InexactFloat64(), 1)
		}
		rep.Lines = append(rep.Lines, line)
	}

	rep.Unbudgeted = categoryTotals(items, func(category string) bool {
		_, ok := budgets[category]
		return !ok
	})
	return rep
}

// Uncategorized lists items carrying the catch-all category, newest first.
func (d Dataset) Uncategorized() []Item {
	items := d.where(func(it Item) bool { return it.Category == domain.DefaultCategory })
	sortNewestFirst(items)
	return items
}

func (d Dataset) where(keep func(Item) bool) []Item {
	var out []Item
	for _, it := range d.Items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func dailyTotals(items []Item) []DayTotal {
	sums := map[civil.Date]decimal.Decimal{}
	for _, it := range items {
		sums[it.Date] = sums[it.Date].Add(it.TotalPrice)
	}
	out := make([]DayTotal, 0, len(sums))
	for date, amount := range sums {
		out = append(out, DayTotal{Date: date, Amount: amount})
	}
	slices.SortFunc(out, func(a, b DayTotal) int { return compareDates(a.Date, b.Date) })
	return out
}

func categoryTotals(items []Item, include func(string) bool) []CategoryTotal {
	byCat := map[string]*CategoryTotal{}
	for _, it := range items {
		if include != nil && !include(it.Category) {
			continue
		}
		t, ok := byCat[it.Category]
		if !ok {
			t = &CategoryTotal{Category: it.Category, Amount: decimal.Zero}
			byCat[it.Category] = t
		}
		t.Amount = t.Amount.Add(it.TotalPrice)
		t.Items++
	}
	out := make([]CategoryTotal, 0, len(byCat))
	for _, t := range byCat {
		if t.Amount.IsPositive() {
			out = append(out, *t)
		}
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

func distinct(items []Item, key func(Item) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func sortNewestFirst(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int { return compareDates(b.Date, a.Date) })
}

func average(sum decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
