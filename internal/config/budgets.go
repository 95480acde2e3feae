package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// budgetsFile is the on-disk layout of BUDGETS_FILE:
//
//	[budgets]
//	"Lebensmittel: Backwaren" = 40.0
type budgetsFile struct {
	Budgets map[string]float64 `toml:"budgets"`
}

// LoadBudgets reads monthly budgets keyed by category. An empty path yields no budgets.
func LoadBudgets(path string) (map[string]float64, error) {
	if path == "" {
		return map[string]float64{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadBudgets: read %s: %w", path, err)
	}
	var f budgetsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadBudgets: parse %s: %w", path, err)
	}
	for cat, amount := range f.Budgets {
		if amount < 0 {
			return nil, fmt.Errorf("LoadBudgets: negative budget %v for %q", amount, cat)
		}
	}
	if f.Budgets == nil {
		f.Budgets = map[string]float64{}
	}
	return f.Budgets, nil
}
