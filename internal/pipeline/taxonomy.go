package pipeline

import (
	"strings"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// categories is the ordered allow-list for line item categories.
var categories = []string{
	// Groceries
	"Lebensmittel: Milchprodukte & Eier",
	"Lebensmittel: Backwaren",
	"Lebensmittel: Fleisch & Wurst",
	"Lebensmittel: Fisch",
	"Lebensmittel: Obst (frisch)",
	"Lebensmittel: Gemüse (frisch)",
	"Lebensmittel: Tiefkühlkost (Gemüse, Obst, Fisch, Fleisch, Fertiggerichte)",
	"Lebensmittel: Konserven & Gläser",
	"Lebensmittel: Trockenwaren & Beilagen",
	"Lebensmittel: Öle, Fette & Gewürze",
	"Lebensmittel: Brotaufstriche (süß & herzhaft)",
	"Lebensmittel: Süßigkeiten & Snacks",
	"Lebensmittel: Babynahrung",

	// Beverages
	"Getränke: Wasser",
	"Getränke: Säfte & Softdrinks",
	"Getränke: Kaffee, Tee & Kakao",
	"Getränke: Bier",
	"Getränke: Wein & Sekt",
	"Getränke: Spirituosen",
	"Getränke: Pfand",

	"Haushalt: Reinigungsmittel",
	"Haushalt: Papier- & Hygieneartikel",

	"Drogerie: Körperpflege",
	"Drogerie: Gesundheit & Apotheke",
	"Drogerie: Kosmetik",

	"Außer Haus: Restaurant / Imbiss",
	"Außer Haus: Café / Bäckerei",
	"Außer Haus: Lieferdienste",
	"Außer Haus: Kantine / Mensa",

	"Transport: Tanken / Kraftstoff",
	"Transport: ÖPNV / Fahrkarten",
	"Transport: Parken",

	"Freizeit: Bücher & Medien",
	"Freizeit: Kultur & Events",
	"Freizeit: Hobbybedarf",
	"Freizeit: Sport",

	"Kleidung & Schuhe",

	"Kinder: Spielzeug",
	"Kinder: Schulbedarf",

	"Haustiere: Futter",
	"Haustiere: Bedarf & Tierarzt",

	"Haus & Garten: Werkzeug & Material",
	"Haus & Garten: Pflanzen & Bedarf",

	"Geschenke",

	domain.DefaultCategory,
}

// Taxonomy is the immutable category catalog. It is built once at startup and
// shared by value; nothing mutates it afterwards.
type Taxonomy struct {
	ordered []string
	members map[string]struct{}
}

// DefaultTaxonomy returns the built-in receipt category catalog.
func DefaultTaxonomy() Taxonomy {
	return NewTaxonomy(categories)
}

// NewTaxonomy builds a taxonomy from an ordered list. The catch-all category is
// appended when missing so coercion always has a valid fallback.
func NewTaxonomy(list []string) Taxonomy {
	t := Taxonomy{
		ordered: make([]string, 0, len(list)+1),
		members: make(map[string]struct{}, len(list)+1),
	}
	for _, c := range list {
		if _, dup := t.members[c]; dup {
			continue
		}
		t.members[c] = struct{}{}
		t.ordered = append(t.ordered, c)
	}
	if _, ok := t.members[domain.DefaultCategory]; !ok {
		t.members[domain.DefaultCategory] = struct{}{}
		t.ordered = append(t.ordered, domain.DefaultCategory)
	}
	return t
}

// Contains reports whether category is an exact member of the taxonomy.
// No trimming, case folding or fuzzy matching is applied.
func (t Taxonomy) Contains(category string) bool {
	_, ok := t.members[category]
	return ok
}

// All returns the categories in catalog order.
func (t Taxonomy) All() []string {
	return append([]string(nil), t.ordered...)
}

// Len returns the number of categories.
func (t Taxonomy) Len() int {
	return len(t.ordered)
}

// CategoryGroup is a display grouping of categories sharing a prefix.
type CategoryGroup struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Groups groups categories by the text before the first ':'. Categories
// without a prefix form their own group. Group order follows first appearance.
func (t Taxonomy) Groups() []CategoryGroup {
	var groups []CategoryGroup
	index := map[string]int{}
	for _, c := range t.ordered {
		name := c
		if i := strings.Index(c, ":"); i != -1 {
			name = strings.TrimSpace(c[:i])
		}
		pos, ok := index[name]
		if !ok {
			pos = len(groups)
			index[name] = pos
			groups = append(groups, CategoryGroup{Name: name})
		}
		groups[pos].Categories = append(groups[pos].Categories, c)
	}
	return groups
}
