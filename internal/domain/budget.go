package domain

import "fmt"

// Budgets maps a category to its monthly spending limit. Budgets are
// independent of transactions and compared against them only at query time.
// The latest write for a category wins.
type Budgets map[Category]float64

// Validate rejects malformed budget maps at the store boundary.
func (b Budgets) Validate() error {
	for cat, limit := range b {
		if _, err := ParseCategory(string(cat)); err != nil {
			return fmt.Errorf("budget: %w", err)
		}
		if limit <= 0 {
			return fmt.Errorf("budget for %s: limit must be positive, got %v", cat, limit)
		}
	}
	return nil
}
