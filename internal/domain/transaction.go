package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Category is the fixed transaction taxonomy. Budgets and transactions share it.
type Category string

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryHousing        Category = "housing"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryHealthcare     Category = "healthcare"
	CategoryOther          Category = "other"
)

// Categories lists every valid category in a stable order.
var Categories = []Category{
	CategoryFood,
	CategoryTransportation,
	CategoryHousing,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealthcare,
	CategoryOther,
}

// ParseCategory normalizes and validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Categories {
		if c == valid {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", s)
}

// TxType distinguishes money out from money in.
type TxType string

const (
	TypeExpense TxType = "expense"
	TypeIncome  TxType = "income"
)

// ParseTxType normalizes and validates a transaction type.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if t != TypeExpense && t != TypeIncome {
		return "", fmt.Errorf("invalid transaction type %q (want %q or %q)", s, TypeExpense, TypeIncome)
	}
	return t, nil
}

// Transaction is one ledger entry. Transactions are immutable: they are only
// ever created or deleted, never edited in place. Derived figures (balance,
// totals, breakdowns) are never stored on the record.
type Transaction struct {
	ID          string     `json:"id"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Type        TxType     `json:"type"`
	Date        civil.Date `json:"date"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate rejects malformed transactions before they enter the ledger.
// The store boundary calls this on every append and on every record it
// reads back from persistence.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction: missing id")
	}
	if t.Amount <= 0 {
		return fmt.Errorf("transaction %s: amount must be positive, got %v", t.ID, t.Amount)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("transaction %s: missing description", t.ID)
	}
	if _, err := ParseCategory(string(t.Category)); err != nil {
		return fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	if _, err := ParseTxType(string(t.Type)); err != nil {
		return fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	if !t.Date.IsValid() {
		return fmt.Errorf("transaction %s: invalid date %v", t.ID, t.Date)
	}
	return nil
}
