package ledger

import "fmt"

// FormatUSD renders an amount the way every pre-computed figure is injected
// into prompts and answers. The model never formats numbers itself.
func FormatUSD(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-$%.2f", -amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}
